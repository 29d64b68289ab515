package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func Connect(config Config, log *zap.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	fields := []zap.Field{zap.String("addr", addr), zap.Int("db", config.DB)}
	if info, err := client.Info(ctx, "server").Result(); err == nil {
		if version, ok := parseInfo(info)["redis_version"]; ok {
			fields = append(fields, zap.String("version", version))
		}
	}
	log.Info("Redis connected", fields...)

	return client, nil
}

var statKeys = []string{
	"redis_version",
	"connected_clients",
	"used_memory_human",
	"used_memory_peak_human",
	"total_connections_received",
	"total_commands_processed",
	"keyspace_hits",
	"keyspace_misses",
	"uptime_in_seconds",
}

// GetStats возвращает выбранные поля INFO
func GetStats(ctx context.Context, client *redis.Client) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	info, err := client.Info(ctx).Result()
	if err != nil {
		return nil, err
	}

	all := parseInfo(info)
	stats := make(map[string]string, len(statKeys))
	for _, key := range statKeys {
		if value, ok := all[key]; ok {
			stats[key] = value
		}
	}
	return stats, nil
}

func parseInfo(info string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, value, found := strings.Cut(line, ":"); found {
			values[key] = value
		}
	}
	return values
}
