package worker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Worker interface {
	Start()
	Stop()
}

type Scheduler struct {
	workers []Worker
	log     *zap.Logger
	started bool
	stopped bool
	mu      sync.Mutex
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		workers: make([]Worker, 0),
		log:     log.Named("scheduler"),
	}
}

func (s *Scheduler) AddWorker(worker Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	s.log.Info("Starting scheduler", zap.Int("workers", len(s.workers)))
	for _, worker := range s.workers {
		worker.Start()
	}
}

// Stop останавливает воркеров, но не дольше timeout
func (s *Scheduler) Stop(timeout time.Duration) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	workers := s.workers
	started := s.started
	s.mu.Unlock()

	if !started {
		return
	}

	s.log.Info("Stopping scheduler...")

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for _, worker := range workers {
			wg.Add(1)
			go func(w Worker) {
				defer wg.Done()
				w.Stop()
			}(worker)
		}
		wg.Wait()
	}()

	select {
	case <-done:
		s.log.Info("Scheduler stopped gracefully")
	case <-time.After(timeout):
		s.log.Warn("Scheduler stop timeout", zap.Duration("timeout", timeout))
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}
