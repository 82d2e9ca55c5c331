package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	// Create は自店舗に商品を出品する。
	Create(ctx context.Context, userID, name, description string, price int64, stock int) (*model.Product, error)
	// Update は自店舗の商品を更新する。
	Update(ctx context.Context, userID, productID, name, description string, price int64, stock int) (*model.Product, error)
	// Delete は自店舗の商品を論理削除する。
	Delete(ctx context.Context, userID, productID string) error
	// GetProduct は商品詳細を取得する。
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	// ListByStore は自店舗の商品一覧（論理削除済み含む）を返す。
	ListByStore(ctx context.Context, userID string) ([]*model.Product, error)
	// ListPublicByStore は有効化済み店舗の公開商品一覧を返す。
	ListPublicByStore(ctx context.Context, storeID string) ([]*model.Product, error)
	// Search はキーワードで商品を検索する。
	Search(ctx context.Context, keyword string, sort model.ProductSort, cursor time.Time, limit int) ([]*model.Product, error)
}

// ProductHandler は出店者の商品管理のHTTPハンドラー。
type ProductHandler struct {
	service ProductServiceInterface
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(service ProductServiceInterface) *ProductHandler {
	return &ProductHandler{service: service}
}

// productRequest は商品の登録・更新リクエストのボディ。
type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
}

// sellerProductResponse は出店者向け商品情報のAPIレスポンス。
// 論理削除済みの商品も一覧に含まれるため、deleted_atを返す。
type sellerProductResponse struct {
	productResponse
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func toSellerProductResponse(p *model.Product) sellerProductResponse {
	return sellerProductResponse{
		productResponse: toProductResponse(p),
		DeletedAt:       p.DeletedAt,
	}
}

// Create は商品を出品する。
// POST /api/seller/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	product, err := h.service.Create(r.Context(), userID, req.Name, req.Description, req.Price, req.Stock)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSellerProductResponse(product))
}

// Update は商品を更新する。
// PUT /api/seller/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	productID := chi.URLParam(r, "id")

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	product, err := h.service.Update(r.Context(), userID, productID, req.Name, req.Description, req.Price, req.Stock)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSellerProductResponse(product))
}

// Delete は商品を論理削除する。
// DELETE /api/seller/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	productID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, productID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List は自店舗の商品一覧（論理削除済み含む）を取得する。
// GET /api/seller/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	products, err := h.service.ListByStore(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]sellerProductResponse, len(products))
	for i, p := range products {
		results[i] = toSellerProductResponse(p)
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": results})
}
