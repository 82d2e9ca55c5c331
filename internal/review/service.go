// Package review は商品レビューのドメインロジックを提供する。
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
	"github.com/hitoshi/ichiba/internal/security"
)

// レビュー一覧の取得件数。
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// maxCommentLength はレビューコメントの最大長（サニタイズ前の文字数）。
const maxCommentLength = 4000

// Service はレビューのサービス層。
type Service struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		sanitizer:   sanitizer,
	}
}

// Post はレビューを投稿する。
// 同一ユーザーは同一商品に1件のみ投稿できる。コメントはサニタイズして保存する。
func (s *Service) Post(ctx context.Context, userID, productID string, rating int, comment string) (*model.Review, error) {
	if !model.IsValidRating(rating) {
		return nil, model.NewInvalidRatingError(rating)
	}
	if len([]rune(comment)) > maxCommentLength {
		return nil, model.NewInvalidInputError("comment is too long")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	existing, err := s.reviewRepo.FindByUserAndProduct(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateReviewError()
	}

	review := &model.Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   s.sanitizer.Sanitize(comment),
		CreatedAt: time.Now(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	slog.Info("review posted",
		slog.String("review_id", review.ID),
		slog.String("product_id", productID),
		slog.Int("rating", rating),
	)
	return review, nil
}

// ListByProduct は商品のレビュー一覧をカーソルベースページネーションで返す。
func (s *Service) ListByProduct(ctx context.Context, productID string, cursor time.Time, limit int) ([]*model.Review, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	reviews, err := s.reviewRepo.ListByProduct(ctx, productID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// ProductSummary は商品の評価集計（平均・件数・分布）を返す。
func (s *Service) ProductSummary(ctx context.Context, productID string) (*model.RatingSummary, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	summary, err := s.reviewRepo.SummaryByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	return summary, nil
}

// StoreSummary は店舗の全商品を横断した評価集計を返す（出品者の評価分析向け）。
func (s *Service) StoreSummary(ctx context.Context, storeID string) (*model.RatingSummary, error) {
	summary, err := s.reviewRepo.SummaryByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize store reviews: %w", err)
	}
	return summary, nil
}
