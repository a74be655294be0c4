package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Scheduler runs the pipeline on a fixed interval. Only one pass runs at a
// time; if a pass is still in flight when the ticker fires, the tick is
// skipped rather than overlapped.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewScheduler creates a new interval scheduler
func NewScheduler(orchestrator *Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		interval:     interval,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	fmt.Printf("[Scheduler] Started with interval %v\n", s.interval)
}

// Stop stops the scheduler and waits for an in-flight pass to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	fmt.Println("[Scheduler] Stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runPass()
		}
	}
}

func (s *Scheduler) runPass() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[Scheduler] Previous pass still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := s.orchestrator.RunOnce(s.ctx); err != nil {
		fmt.Printf("[Scheduler] Pass failed: %v\n", err)
	}
}
