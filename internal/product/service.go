// Package product は商品の出品・検索のドメインロジックを提供する。
package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
	"github.com/hitoshi/ichiba/internal/security"
)

// 商品検索の取得件数。
const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// maxPrice は商品価格の上限（円）。入力ミスによる桁違いの価格を弾く。
const maxPrice = 100_000_000

// Service は商品のサービス層。
// 出品操作はオーナーの有効化済み店舗に限定される。
type Service struct {
	productRepo repository.ProductRepository
	storeRepo   repository.StoreRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	productRepo repository.ProductRepository,
	storeRepo repository.StoreRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		productRepo: productRepo,
		storeRepo:   storeRepo,
		sanitizer:   sanitizer,
	}
}

// ownedActiveStore はユーザーの有効化済み店舗を取得する。
// 店舗がない場合はSTORE_NOT_FOUND、有効化前の場合はSTORE_NOT_ACTIVEを返す。
func (s *Service) ownedActiveStore(ctx context.Context, userID string) (*model.Store, error) {
	store, err := s.storeRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return nil, model.NewStoreNotFoundError(userID)
	}
	if store.Status != model.StoreStatusActive {
		return nil, model.NewStoreNotActiveError()
	}
	return store, nil
}

// validateInput は商品の入力値を検証する。
func validateInput(name string, price int64, stock int) error {
	if strings.TrimSpace(name) == "" {
		return model.NewInvalidInputError("product name is required")
	}
	if price < 0 || price > maxPrice {
		return model.NewInvalidPriceError()
	}
	if stock < 0 {
		return model.NewInvalidInputError("stock must not be negative")
	}
	return nil
}

// Create はオーナーの有効化済み店舗に商品を出品する。
// 商品説明はXSS対策のためサニタイズして保存する。
func (s *Service) Create(ctx context.Context, userID, name, description string, price int64, stock int) (*model.Product, error) {
	store, err := s.ownedActiveStore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(name, price, stock); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &model.Product{
		ID:          uuid.New().String(),
		StoreID:     store.ID,
		Name:        name,
		Description: s.sanitizer.Sanitize(description),
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	slog.Info("product created",
		slog.String("product_id", product.ID),
		slog.String("store_id", store.ID),
	)
	return product, nil
}

// Update はオーナーの商品情報を更新する。
func (s *Service) Update(ctx context.Context, userID, productID, name, description string, price int64, stock int) (*model.Product, error) {
	store, err := s.ownedActiveStore(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.ownedProduct(ctx, store, productID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(name, price, stock); err != nil {
		return nil, err
	}

	product.Name = name
	product.Description = s.sanitizer.Sanitize(description)
	product.Price = price
	product.Stock = stock

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete はオーナーの商品を論理削除する。
// 削除済み商品は公開カタログから即座に消えるが、注文履歴からは参照され続ける。
func (s *Service) Delete(ctx context.Context, userID, productID string) error {
	store, err := s.ownedActiveStore(ctx, userID)
	if err != nil {
		return err
	}

	product, err := s.ownedProduct(ctx, store, productID)
	if err != nil {
		return err
	}

	if err := s.productRepo.SoftDelete(ctx, product.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	slog.Info("product deleted",
		slog.String("product_id", product.ID),
		slog.String("store_id", store.ID),
	)
	return nil
}

// ownedProduct は商品を取得し、指定店舗の所有物であることを確認する。
// 他店舗の商品IDを指定された場合は存在を漏らさずPRODUCT_NOT_FOUNDを返す。
func (s *Service) ownedProduct(ctx context.Context, store *model.Store, productID string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil || product.StoreID != store.ID {
		return nil, model.NewProductNotFoundError(productID)
	}
	return product, nil
}

// GetProduct は公開カタログ向けに商品を取得する。
// 論理削除済みの商品は存在しないものとして扱う。
func (s *Service) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}
	return product, nil
}

// ListByStore はオーナー向けに自店舗の商品一覧（削除済み含む）を返す。
func (s *Service) ListByStore(ctx context.Context, userID string) ([]*model.Product, error) {
	store, err := s.ownedActiveStore(ctx, userID)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.ListByStore(ctx, store.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ListPublicByStore は公開店舗ページ向けに店舗の商品一覧を返す。
// 有効化済み店舗の未削除商品のみを対象とする。
func (s *Service) ListPublicByStore(ctx context.Context, storeID string) ([]*model.Product, error) {
	store, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil || store.Status != model.StoreStatusActive {
		return nil, model.NewStoreNotFoundError(storeID)
	}
	products, err := s.productRepo.ListByStore(ctx, store.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Search は公開カタログの商品検索を行う。
// sortが空の場合は新着順、limitが0以下の場合はデフォルト件数を使用する。
// cursorはカーソルベースページネーションの続きを示すcreated_at（ゼロ値で先頭から）。
func (s *Service) Search(ctx context.Context, keyword string, sort model.ProductSort, cursor time.Time, limit int) ([]*model.Product, error) {
	if sort == "" {
		sort = model.ProductSortNewest
	}
	if !sort.IsValid() {
		return nil, model.NewInvalidSortError(string(sort))
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	products, err := s.productRepo.Search(ctx, keyword, sort, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}
