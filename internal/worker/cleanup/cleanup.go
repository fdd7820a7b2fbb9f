// Package cleanup は購入済みアイテムの自動削除ジョブを提供する。
// 保持期間を超過した購入済みアイテムをワーカーモードで定期的に削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays は購入済みアイテムのデフォルト保持日数。
const DefaultRetentionDays = 30

// Purger は購入済みアイテムの削除を抽象化するインターフェース。
// PostgreSQLとインメモリのアイテムリポジトリが実装する。
type Purger interface {
	// DeletePurchasedBefore はcutoffより前に購入済みになったアイテムを削除し、削除件数を返す。
	DeletePurchasedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder は削除件数を記録するインターフェース。
type Recorder interface {
	PurchasedItemsDeleted(n int64)
}

// CleanupJob は保持期間を超過した購入済みアイテムの自動削除ジョブ。
// 削除対象がなくてもエラーにならない（冪等）。
type CleanupJob struct {
	purger        Purger
	logger        *slog.Logger
	recorder      Recorder
	now           func() time.Time
	RetentionDays int // 購入済みアイテムの保持日数。0以下で無効
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。recorderはnilでもよい。
func NewCleanupJob(purger Purger, logger *slog.Logger, recorder Recorder) *CleanupJob {
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		recorder:      recorder,
		now:           time.Now,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run は保持期間を超過した購入済みアイテムを削除する。
// RetentionDaysが0以下の場合は何もしない。
func (j *CleanupJob) Run(ctx context.Context) error {
	if j.RetentionDays <= 0 {
		j.logger.Debug("purchased item cleanup disabled")
		return nil
	}

	start := time.Now()
	cutoff := j.now().UTC().AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.purger.DeletePurchasedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("purchased item cleanup failed",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("購入済みアイテムのクリーンアップに失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.PurchasedItemsDeleted(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("purchased item cleanup completed",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
