package repository

import (
	"context"

	"app/internal/domain/model"
)

// 不整合アラートの保存・一覧の約束。
// 確定トランザクションの外側で書く（ロールバックに巻き込まれないため）。
type AlertRepository interface {
	Create(ctx context.Context, a model.ReconciliationAlert) error
	List(ctx context.Context, limit int, offset int) ([]model.ReconciliationAlert, error)
}
