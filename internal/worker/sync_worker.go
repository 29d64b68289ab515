package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"neowatch/internal/service"
)

type SyncWorker struct {
	service    service.IngestService
	cron       *cron.Cron
	timeout    time.Duration
	runOnStart bool
	log        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type SyncWorkerConfig struct {
	// Schedule is a cron spec with a leading seconds field.
	Schedule   string
	Timeout    time.Duration
	RunOnStart bool
}

func NewSyncWorker(svc service.IngestService, config SyncWorkerConfig, log *zap.Logger) (*SyncWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &SyncWorker{
		service:    svc,
		cron:       cron.New(cron.WithSeconds()),
		timeout:    config.Timeout,
		runOnStart: config.RunOnStart,
		log:        log.Named("sync_worker"),
		ctx:        ctx,
		cancel:     cancel,
	}

	if _, err := w.cron.AddFunc(config.Schedule, w.runPass); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sync schedule %q: %w", config.Schedule, err)
	}
	return w, nil
}

func (w *SyncWorker) Start() {
	w.log.Info("Sync worker started", zap.Duration("timeout", w.timeout))
	w.cron.Start()

	// Первый проход сразу, не дожидаясь расписания
	if w.runOnStart {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runPass()
		}()
	}
}

// Stop отменяет текущий проход и ждет его завершения
func (w *SyncWorker) Stop() {
	w.cancel()
	<-w.cron.Stop().Done()
	w.wg.Wait()
	w.log.Info("Sync worker stopped")
}

func (w *SyncWorker) runPass() {
	ctx := w.ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	result := w.service.Sync(ctx, service.SyncOptions{})
	switch {
	case errors.Is(result.Err, service.ErrSyncInProgress):
		w.log.Info("Previous sync still running, skipping scheduled pass")
	case !result.Success:
		w.log.Warn("Scheduled sync failed", zap.String("error", result.Error))
	default:
		w.log.Info("Scheduled sync completed",
			zap.Int("neos", result.NEOsProcessed),
			zap.Int("comets", result.CometsProcessed),
			zap.Int("failures", len(result.Failures)),
		)
	}
}
