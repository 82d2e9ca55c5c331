// Package order は注文（チェックアウト）のドメインロジックを提供する。
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// maxItemsPerOrder は1注文あたりの明細行の上限。
const maxItemsPerOrder = 50

// maxQuantityPerItem は1明細あたりの数量上限。
const maxQuantityPerItem = 100

// CheckoutItem はチェックアウト要求の1明細。
type CheckoutItem struct {
	ProductID string
	Quantity  int
}

// Service は注文のサービス層。
// 注文作成と在庫減算は単一トランザクションで行われ、
// 在庫不足の商品が1つでもあれば注文全体が失敗する。
type Service struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository) *Service {
	return &Service{
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// Checkout は注文を作成する。
// フロー: 明細検証 → 商品解決（価格スナップショット） → 注文+明細+在庫減算のトランザクション
//
// 各明細のUnitPriceは購入時点の商品価格のスナップショットであり、
// その後の価格変更の影響を受けない。
func (s *Service) Checkout(ctx context.Context, userID string, items []CheckoutItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, model.NewInvalidInputError("order must contain at least one item")
	}
	if len(items) > maxItemsPerOrder {
		return nil, model.NewInvalidInputError("too many items in one order")
	}

	seen := make(map[string]bool, len(items))
	now := time.Now()
	order := &model.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
	}

	for _, item := range items {
		if item.Quantity <= 0 || item.Quantity > maxQuantityPerItem {
			return nil, model.NewInvalidInputError("item quantity is out of range")
		}
		if seen[item.ProductID] {
			return nil, model.NewInvalidInputError("duplicate product in order items")
		}
		seen[item.ProductID] = true

		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to find product: %w", err)
		}
		if product == nil {
			return nil, model.NewProductNotFoundError(item.ProductID)
		}

		// 事前の在庫チェック。最終判定はトランザクション内の条件付きUPDATEで行う。
		if product.Stock < item.Quantity {
			return nil, model.NewOutOfStockError(product.Name)
		}

		order.Items = append(order.Items, model.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: product.ID,
			StoreID:   product.StoreID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		order.Total += product.Price * int64(item.Quantity)
	}

	if err := s.orderRepo.CreateWithItems(ctx, order); err != nil {
		// 並行注文とのレースで在庫が尽きた場合はここで検出される
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, model.NewOutOfStockError("注文内の商品")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	slog.Info("order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int("items", len(order.Items)),
		slog.Int64("total", order.Total),
	)
	return order, nil
}
