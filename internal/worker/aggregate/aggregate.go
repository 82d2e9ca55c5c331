// Package aggregate はレビュー評価の集計バッチを提供する。
// レビューテーブルから商品ごとの平均評価とレビュー数を算出し、
// 商品テーブルへ非正規化して書き戻す。検索の評価順ソートはこの値を使用する。
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/repository"
)

// AggregateJob は評価集計の非正規化バッチジョブ。
// 冪等: 同じ集計結果を何度書き戻しても最終状態は変わらない。
type AggregateJob struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	storeRepo   repository.StoreRepository
	collector   metrics.MetricsCollector
	logger      *slog.Logger
}

// NewAggregateJob は新しいAggregateJobを生成する。
// collectorはnilでもよい（メトリクスなしで動作する）。
func NewAggregateJob(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	storeRepo repository.StoreRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *AggregateJob {
	return &AggregateJob{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		storeRepo:   storeRepo,
		collector:   collector,
		logger:      logger,
	}
}

// Run は評価集計を1回実行する。
// レビューが存在する全商品の集計を取得し、商品ごとに書き戻す。
// 個別商品の書き戻し失敗はログに記録して続行し、最後にまとめてエラーを返す。
func (j *AggregateJob) Run(ctx context.Context) error {
	start := time.Now()

	stats, err := j.reviewRepo.ListProductStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list product rating stats: %w", err)
	}

	updated := 0
	failed := 0
	for _, stat := range stats {
		if err := j.productRepo.UpdateRatingStats(ctx, stat.ProductID, stat.AvgRating, stat.ReviewCount); err != nil {
			failed++
			j.logger.Error("評価集計の書き戻しに失敗しました",
				slog.String("product_id", stat.ProductID),
				slog.String("error", err.Error()),
			)
			continue
		}
		updated++
	}

	if j.collector != nil {
		j.collector.RecordRatingAggregation(updated)
	}

	// 状態別店舗数のゲージも集計サイクルに合わせて更新する
	j.refreshStoreCounts(ctx)

	j.logger.Info("評価集計ジョブが完了しました",
		slog.Int("updated", updated),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	if failed > 0 {
		return fmt.Errorf("failed to update rating stats for %d products", failed)
	}
	return nil
}

// refreshStoreCounts は状態別の店舗数メトリクスを更新する。
func (j *AggregateJob) refreshStoreCounts(ctx context.Context) {
	if j.collector == nil || j.storeRepo == nil {
		return
	}
	counts, err := j.storeRepo.CountByStatus(ctx)
	if err != nil {
		j.logger.Error("店舗数の集計に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	for status, count := range counts {
		j.collector.SetStoreCount(string(status), count)
	}
}

// Start は指定間隔のティッカーで集計ジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *AggregateJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("評価集計スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.Run(ctx); err != nil {
		j.logger.Error("評価集計ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("評価集計スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("評価集計ジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
