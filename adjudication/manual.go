package adjudication

import (
	"context"

	"github.com/Dosada05/arena-escrow/models"
)

// Manual отправляет каждое доказательство на ручную проверку.
type Manual struct{}

func (Manual) CheckResult(context.Context, string) (models.Verdict, error) {
	return models.Inconclusive, nil
}
