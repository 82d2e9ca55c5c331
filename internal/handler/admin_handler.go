package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ichiba/internal/model"
)

// AdminHandler は運営管理者向けの出店審査とプラットフォームレポートのHTTPハンドラー。
type AdminHandler struct {
	stores  StoreServiceInterface
	reports ReportServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(stores StoreServiceInterface, reports ReportServiceInterface) *AdminHandler {
	return &AdminHandler{
		stores:  stores,
		reports: reports,
	}
}

// adminStoreResponse は管理者向け店舗情報のAPIレスポンス。
// 審査画面で使うため、申請者と有効化期限を含む。
type adminStoreResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	WebsiteURL        string     `json:"website_url"`
	PICEmail          string     `json:"pic_email"`
	Status            string     `json:"status"`
	ActivationExpires *time.Time `json:"activation_expires,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toAdminStoreResponse(store *model.Store) adminStoreResponse {
	return adminStoreResponse{
		ID:                store.ID,
		UserID:            store.UserID,
		Name:              store.Name,
		Description:       store.Description,
		WebsiteURL:        store.WebsiteURL,
		PICEmail:          store.PICEmail,
		Status:            string(store.Status),
		ActivationExpires: store.ActivationExpires,
		CreatedAt:         store.CreatedAt,
	}
}

// updateStoreStatusRequest は店舗状態遷移リクエストのボディ。
type updateStoreStatusRequest struct {
	Status string `json:"status"`
}

// ListStores は指定状態の店舗一覧を取得する。
// GET /api/admin/stores?status=pending
func (h *AdminHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	status := model.StoreStatus(r.URL.Query().Get("status"))

	stores, err := h.stores.ListByStatus(r.Context(), status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]adminStoreResponse, len(stores))
	for i, store := range stores {
		results[i] = toAdminStoreResponse(store)
	}

	writeJSON(w, http.StatusOK, map[string]any{"stores": results})
}

// UpdateStoreStatus は店舗の状態遷移（承認・却下）を実行する。
// activeへの直接遷移は許可されない（有効化はトークン検証経由のみ）。
// PATCH /api/admin/stores/{id}/status
func (h *AdminHandler) UpdateStoreStatus(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")

	var req updateStoreStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	store, err := h.stores.UpdateStatus(r.Context(), storeID, model.StoreStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdminStoreResponse(store))
}

// ResendActivation は有効化トークンを再発行してメールを再送する。
// POST /api/admin/stores/{id}/resend-activation
func (h *AdminHandler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")

	store, err := h.stores.ResendActivation(r.Context(), storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdminStoreResponse(store))
}

// platformSummaryResponse はプラットフォーム集計のAPIレスポンス。
type platformSummaryResponse struct {
	StoresByStatus map[string]int `json:"stores_by_status"`
	ProductCount   int            `json:"product_count"`
	OrderCount     int            `json:"order_count"`
	TotalRevenue   int64          `json:"total_revenue"`
}

// PlatformSummary はプラットフォーム全体の集計レポートを取得する。
// GET /api/admin/reports/summary
func (h *AdminHandler) PlatformSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.PlatformSummary(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	byStatus := make(map[string]int, len(summary.StoresByStatus))
	for status, count := range summary.StoresByStatus {
		byStatus[string(status)] = count
	}

	writeJSON(w, http.StatusOK, platformSummaryResponse{
		StoresByStatus: byStatus,
		ProductCount:   summary.ProductCount,
		OrderCount:     summary.OrderCount,
		TotalRevenue:   summary.TotalRevenue,
	})
}
