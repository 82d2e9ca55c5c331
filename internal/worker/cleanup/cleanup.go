// Package cleanup は論理削除済み商品の物理削除ジョブを提供する。
// 保持期間（デフォルト180日）を超過した論理削除済み商品を日次バッチで削除する。
// 関連するレビューと注文明細はCASCADE削除で自動的に処理される。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/ichiba/internal/metrics"
)

// ProductPurger は物理削除の永続化操作を抽象化するインターフェース。
// repository.ProductRepositoryのサブセット。
type ProductPurger interface {
	PurgeDeletedBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過した論理削除済み商品の物理削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	products      ProductPurger
	collector     metrics.MetricsCollector
	logger        *slog.Logger
	RetentionDays int // 論理削除後の保持日数（デフォルト: 180）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は180日。collectorはnilでもよい。
func NewCleanupJob(products ProductPurger, collector metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		products:      products,
		collector:     collector,
		logger:        logger,
		RetentionDays: 180,
	}
}

// Run は保持期間を超過した論理削除済み商品を物理削除する。
// deleted_atがRetentionDays日前より古い商品が対象。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	before := start.AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.products.PurgeDeletedBefore(ctx, before)
	if err != nil {
		j.logger.Error("商品クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("failed to purge deleted products: %w", err)
	}

	if j.collector != nil {
		j.collector.RecordProductsPurged(deletedCount)
	}

	j.logger.Info("商品クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでクリーンアップジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("商品クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("商品クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
