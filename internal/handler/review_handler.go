package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	// Post は商品にレビューを投稿する。同一商品への重複投稿はエラー。
	Post(ctx context.Context, userID, productID string, rating int, comment string) (*model.Review, error)
	// ListByProduct は商品のレビュー一覧を返す。
	ListByProduct(ctx context.Context, productID string, cursor time.Time, limit int) ([]*model.Review, error)
	// ProductSummary は商品の評価集計を返す。
	ProductSummary(ctx context.Context, productID string) (*model.RatingSummary, error)
	// StoreSummary は店舗の評価集計を返す。
	StoreSummary(ctx context.Context, storeID string) (*model.RatingSummary, error)
}

// ReviewHandler はレビュー投稿のHTTPハンドラー。
type ReviewHandler struct {
	service   ReviewServiceInterface
	collector metrics.MetricsCollector
}

// NewReviewHandler はReviewHandlerを生成する。collectorはnilでもよい。
func NewReviewHandler(service ReviewServiceInterface, collector metrics.MetricsCollector) *ReviewHandler {
	return &ReviewHandler{
		service:   service,
		collector: collector,
	}
}

// postReviewRequest はレビュー投稿リクエストのボディ。
type postReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Post はレビューを投稿する。
// POST /api/products/{id}/reviews
func (h *ReviewHandler) Post(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	productID := chi.URLParam(r, "id")

	var req postReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	review, err := h.service.Post(r.Context(), userID, productID, req.Rating, req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordReviewPosted()
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}
