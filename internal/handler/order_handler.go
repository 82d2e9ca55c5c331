package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/order"
)

// OrderServiceInterface は注文ハンドラーが必要とするサービスインターフェース。
type OrderServiceInterface interface {
	// Checkout はカート内容から注文を作成し、在庫を引き当てる。
	Checkout(ctx context.Context, userID string, items []order.CheckoutItem) (*model.Order, error)
}

// OrderHandler は注文のHTTPハンドラー。
type OrderHandler struct {
	service   OrderServiceInterface
	collector metrics.MetricsCollector
}

// NewOrderHandler はOrderHandlerを生成する。collectorはnilでもよい。
func NewOrderHandler(service OrderServiceInterface, collector metrics.MetricsCollector) *OrderHandler {
	return &OrderHandler{
		service:   service,
		collector: collector,
	}
}

// checkoutRequest は注文リクエストのボディ。
type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items"`
}

type checkoutItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// orderItemResponse は注文明細のAPIレスポンス。
type orderItemResponse struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// orderResponse は注文のAPIレスポンス。
type orderResponse struct {
	ID        string              `json:"id"`
	Total     int64               `json:"total"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []orderItemResponse `json:"items"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			StoreID:   item.StoreID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return orderResponse{
		ID:        o.ID,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
		Items:     items,
	}
}

// Checkout は注文を作成する。
// POST /api/orders
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	items := make([]order.CheckoutItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	placed, err := h.service.Checkout(r.Context(), userID, items)
	if err != nil {
		h.recordCheckoutFailure(err)
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordOrderPlaced(len(placed.Items))
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(placed))
}

// recordCheckoutFailure は在庫不足による注文失敗をメトリクスに記録する。
func (h *OrderHandler) recordCheckoutFailure(err error) {
	if h.collector == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeOutOfStock {
		h.collector.RecordOutOfStock()
	}
}
