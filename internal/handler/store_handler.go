package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// StoreServiceInterface は店舗ハンドラーが必要とするサービスインターフェース。
type StoreServiceInterface interface {
	// Register は出店申請を受け付け、pending状態の店舗を作成する。
	Register(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error)
	// GetStore は指定IDの店舗を取得する。
	GetStore(ctx context.Context, storeID string) (*model.Store, error)
	// GetStoreByUser はオーナーのユーザーIDで店舗を取得する。
	GetStoreByUser(ctx context.Context, userID string) (*model.Store, error)
	// UpdateProfile は自店舗のプロフィールを更新する。
	UpdateProfile(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error)
	// ListByStatus は指定状態の店舗一覧を返す。
	ListByStatus(ctx context.Context, status model.StoreStatus) ([]*model.Store, error)
	// UpdateStatus は管理者による状態遷移（承認・却下）を実行する。
	UpdateStatus(ctx context.Context, storeID string, requested model.StoreStatus) (*model.Store, error)
	// ResendActivation は有効化トークンを再発行してメールを再送する。
	ResendActivation(ctx context.Context, storeID string) (*model.Store, error)
	// Activate は有効化トークンを検証して店舗を有効化する。
	Activate(ctx context.Context, token string) (model.ActivationResult, *model.Store, error)
}

// StoreHandler は出店申請と出店者の店舗管理のHTTPハンドラー。
type StoreHandler struct {
	service StoreServiceInterface
}

// NewStoreHandler はStoreHandlerを生成する。
func NewStoreHandler(service StoreServiceInterface) *StoreHandler {
	return &StoreHandler{service: service}
}

// storeRequest は出店申請・プロフィール更新リクエストのボディ。
type storeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	WebsiteURL  string `json:"website_url"`
	PICEmail    string `json:"pic_email"`
}

// sellerStoreResponse は出店者向け店舗情報のAPIレスポンス。
type sellerStoreResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	WebsiteURL  string    `json:"website_url"`
	PICEmail    string    `json:"pic_email"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSellerStoreResponse(store *model.Store) sellerStoreResponse {
	return sellerStoreResponse{
		ID:          store.ID,
		Name:        store.Name,
		Description: store.Description,
		WebsiteURL:  store.WebsiteURL,
		PICEmail:    store.PICEmail,
		Status:      string(store.Status),
		CreatedAt:   store.CreatedAt,
		UpdatedAt:   store.UpdatedAt,
	}
}

// Register は出店申請を処理する。
// 申請が受理されるとユーザーのロールはsellerに昇格する（次回ログインから反映）。
// POST /api/stores
func (h *StoreHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	store, err := h.service.Register(r.Context(), userID, req.Name, req.Description, req.WebsiteURL, req.PICEmail)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSellerStoreResponse(store))
}

// GetOwnStore は出店者自身の店舗情報を取得する。
// GET /api/seller/store
func (h *StoreHandler) GetOwnStore(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	store, err := h.service.GetStoreByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSellerStoreResponse(store))
}

// UpdateProfile は出店者自身の店舗プロフィールを更新する。
// PUT /api/seller/store
func (h *StoreHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	store, err := h.service.UpdateProfile(r.Context(), userID, req.Name, req.Description, req.WebsiteURL, req.PICEmail)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSellerStoreResponse(store))
}
