package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/arena-escrow/models"
)

// AdjudicationGateway - внешний оракул, проверяющий доказательство результата.
type AdjudicationGateway interface {
	CheckResult(ctx context.Context, proofRef string) (models.Verdict, error)
}

type AdjudicationPolicy struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MinConfidence float64
}

func DefaultAdjudicationPolicy() AdjudicationPolicy {
	return AdjudicationPolicy{
		Timeout:       15 * time.Second,
		MaxRetries:    2,
		RetryDelay:    500 * time.Millisecond,
		MinConfidence: 0.7,
	}
}

// Accepts - достаточно ли вердикта для автоматической выплаты.
func (p AdjudicationPolicy) Accepts(v models.Verdict) bool {
	return v.Outcome == models.OutcomeWin && v.Confidence >= p.MinConfidence
}

// checkWithRetries вызывает оракул с таймаутом на попытку и экспоненциальной паузой.
// Исчерпание попыток возвращается как ErrAdjudicationTimeout.
func checkWithRetries(ctx context.Context, gw AdjudicationGateway, proofRef string, policy AdjudicationPolicy, logger *slog.Logger) (models.Verdict, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return models.Inconclusive, fmt.Errorf("%w: %v", ErrAdjudicationTimeout, ctx.Err())
			case <-time.After(policy.RetryDelay * time.Duration(1<<(attempt-1))):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
		verdict, err := gw.CheckResult(attemptCtx, proofRef)
		cancel()
		if err == nil {
			return verdict, nil
		}

		lastErr = err
		logger.WarnContext(ctx, "adjudication attempt failed",
			slog.Int("attempt", attempt+1),
			slog.String("proof_ref", proofRef),
			slog.Any("error", err))
		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
	}
	return models.Inconclusive, fmt.Errorf("%w: after %d attempts: %v", ErrAdjudicationTimeout, policy.MaxRetries+1, lastErr)
}
