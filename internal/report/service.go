// Package report は出品者向けレポートと管理者向けプラットフォーム集計を提供する。
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// maxReportRange は売上レポートの最大集計期間。
const maxReportRange = 366 * 24 * time.Hour

// Service はレポートのサービス層。
type Service struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	storeRepo   repository.StoreRepository
	reviewRepo  repository.ReviewRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	storeRepo repository.StoreRepository,
	reviewRepo repository.ReviewRepository,
) *Service {
	return &Service{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		storeRepo:   storeRepo,
		reviewRepo:  reviewRepo,
	}
}

// ownedStore はユーザーの店舗を取得する（レポートは有効化前の店舗でも閲覧可能）。
func (s *Service) ownedStore(ctx context.Context, userID string) (*model.Store, error) {
	store, err := s.storeRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return nil, model.NewStoreNotFoundError(userID)
	}
	return store, nil
}

// Sales は店舗の商品ごとの売上集計を期間指定で返す。
// toはゼロ値の場合は現在時刻、fromはゼロ値の場合はtoの30日前を使用する。
func (s *Service) Sales(ctx context.Context, userID string, from, to time.Time) ([]model.SalesReportRow, error) {
	store, err := s.ownedStore(ctx, userID)
	if err != nil {
		return nil, err
	}

	from, to, err = normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	rows, err := s.orderRepo.SalesByStore(ctx, store.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build sales report: %w", err)
	}
	return rows, nil
}

// WriteSalesCSV は売上レポートをCSV形式で書き出す。
// ヘッダー行 + 商品ごとの1行（商品ID、商品名、販売数、売上金額）。
func (s *Service) WriteSalesCSV(ctx context.Context, w io.Writer, userID string, from, to time.Time) error {
	rows, err := s.Sales(ctx, userID, from, to)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"product_id", "product_name", "units", "revenue"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.ProductID,
			row.ProductName,
			strconv.Itoa(row.Units),
			strconv.FormatInt(row.Revenue, 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Stock は店舗の商品在庫一覧を返す（未削除商品のみ）。
func (s *Service) Stock(ctx context.Context, userID string) ([]*model.Product, error) {
	store, err := s.ownedStore(ctx, userID)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.ListByStore(ctx, store.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	return products, nil
}

// Ratings は店舗の全商品を横断した評価集計を返す。
func (s *Service) Ratings(ctx context.Context, userID string) (*model.RatingSummary, error) {
	store, err := s.ownedStore(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.reviewRepo.SummaryByStore(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ratings: %w", err)
	}
	return summary, nil
}

// PlatformSummary はプラットフォーム全体の集計を返す（管理者向け）。
func (s *Service) PlatformSummary(ctx context.Context) (*model.PlatformSummary, error) {
	storesByStatus, err := s.storeRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stores: %w", err)
	}

	productCount, err := s.productRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	orderCount, totalRevenue, err := s.orderRepo.PlatformTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	return &model.PlatformSummary{
		StoresByStatus: storesByStatus,
		ProductCount:   productCount,
		OrderCount:     orderCount,
		TotalRevenue:   totalRevenue,
	}, nil
}

// normalizeRange は集計期間を正規化する。
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.Add(-30 * 24 * time.Hour)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, model.NewInvalidInputError("report period start must be before end")
	}
	if to.Sub(from) > maxReportRange {
		return time.Time{}, time.Time{}, model.NewInvalidInputError("report period is too long")
	}
	return from, to, nil
}
