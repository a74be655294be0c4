package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
	"github.com/anthropics/whatsapp-monitor/internal/biz/usecase"
	"github.com/google/uuid"
)

// Orchestrator runs the triage pipeline: Collector, then Classifier, then
// Digest Generator, in that fixed order. A stage failure is reported but
// never prevents the remaining stages from running; no stage feeds another
// except through the store.
type Orchestrator struct {
	store       repo.MessageStore
	collector   *usecase.CollectorUsecase
	classifier  *usecase.ClassifierUsecase
	digest      *usecase.DigestUsecase
	claimMaxAge time.Duration
}

// NewOrchestrator creates a new pipeline orchestrator
func NewOrchestrator(
	store repo.MessageStore,
	collector *usecase.CollectorUsecase,
	classifier *usecase.ClassifierUsecase,
	digest *usecase.DigestUsecase,
	claimMaxAge time.Duration,
) *Orchestrator {
	return &Orchestrator{
		store:       store,
		collector:   collector,
		classifier:  classifier,
		digest:      digest,
		claimMaxAge: claimMaxAge,
	}
}

// RunOnce executes one full pipeline pass. The returned error joins the
// failures of all stages that failed.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	runID := uuid.NewString()[:8]
	fmt.Printf("[Orchestrator] Run %s started\n", runID)

	// Re-expose work abandoned by a crashed or failed earlier run.
	released, err := o.store.ReleaseStaleClaims(ctx, time.Now().Add(-o.claimMaxAge))
	if err != nil {
		// The store is unusable; nothing downstream can run safely.
		return fmt.Errorf("run %s: release stale claims: %w", runID, err)
	}
	if released > 0 {
		fmt.Printf("[Orchestrator] Run %s released %d stale claims\n", runID, released)
	}

	var stageErrs []error

	if _, err := o.collector.Run(ctx); err != nil {
		fmt.Printf("[Orchestrator] Run %s collector failed: %v\n", runID, err)
		stageErrs = append(stageErrs, fmt.Errorf("collector: %w", err))
	}

	if err := o.classifier.Run(ctx); err != nil {
		fmt.Printf("[Orchestrator] Run %s classifier failed: %v\n", runID, err)
		stageErrs = append(stageErrs, fmt.Errorf("classifier: %w", err))
	}

	if err := o.digest.Run(ctx); err != nil {
		fmt.Printf("[Orchestrator] Run %s digest failed: %v\n", runID, err)
		stageErrs = append(stageErrs, fmt.Errorf("digest: %w", err))
	}

	if len(stageErrs) == 0 {
		fmt.Printf("[Orchestrator] Run %s completed\n", runID)
		return nil
	}
	return fmt.Errorf("run %s: %w", runID, errors.Join(stageErrs...))
}
