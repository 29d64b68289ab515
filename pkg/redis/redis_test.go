package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(Config{Host: mr.Host(), Port: mr.Port()}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := Connect(Config{Host: host, Port: port}, zap.NewNop())
	assert.Error(t, err)
}

func TestParseInfo(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.4\r\nuptime_in_seconds:42\r\n\r\n# Clients\r\nconnected_clients:3\r\n"

	got := parseInfo(info)
	assert.Equal(t, map[string]string{
		"redis_version":     "7.2.4",
		"uptime_in_seconds": "42",
		"connected_clients": "3",
	}, got)
}
