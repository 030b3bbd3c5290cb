package usecase

import (
	"context"
	"log"
	"time"

	"servipago/internal/usecase/interfaces"
)

const (
	defaultSweepInterval = time.Minute
	defaultStuckAfter    = 5 * time.Minute
	sweepBatchLimit      = 25
)

// StuckPaymentSweeper fails payments abandoned mid-charge, for example when
// the process died between persisting a payment and hearing back from the
// provider. Failing them releases their booking claims so clients can retry.

type StuckPaymentSweeper struct {
	repo     interfaces.IPaymentRepository
	payments IPaymentUseCase

	interval   time.Duration
	stuckAfter time.Duration
}

func NewStuckPaymentSweeper(repo interfaces.IPaymentRepository, payments IPaymentUseCase) *StuckPaymentSweeper {
	return &StuckPaymentSweeper{
		repo:       repo,
		payments:   payments,
		interval:   durationFromEnv("PAYMENT_SWEEP_INTERVAL", defaultSweepInterval),
		stuckAfter: durationFromEnv("PAYMENT_STUCK_AFTER", defaultStuckAfter),
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *StuckPaymentSweeper) Run(ctx context.Context) {
	log.Printf("[payment][sweeper] started interval=%s stuck_after=%s", s.interval, s.stuckAfter)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[payment][sweeper] stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				log.Printf("[payment][sweeper] sweep failed err=%v", err)
			} else if n > 0 {
				log.Printf("[payment][sweeper] swept count=%d", n)
			}
		}
	}
}

// SweepOnce fails every payment stuck past the cutoff and reports how many
// it settled.
func (s *StuckPaymentSweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.stuckAfter)
	stuck, err := s.repo.ListStuck(ctx, cutoff, sweepBatchLimit)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, p := range stuck {
		if _, err := s.payments.FailFromProvider(ctx, p.ID, failureGatewayTimeout); err != nil {
			log.Printf("[payment][sweeper] fail error payment_id=%s err=%v", p.ID, err)
			continue
		}
		swept++
	}
	return swept, nil
}
