package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/model"
)

// CatalogHandler は公開ストアフロントのHTTPハンドラー。
// 認証なしでアクセスできる商品検索・商品詳細・店舗ページ・レビュー閲覧と、
// 店舗有効化エンドポイントを提供する。
type CatalogHandler struct {
	products  ProductServiceInterface
	reviews   ReviewServiceInterface
	stores    StoreServiceInterface
	collector metrics.MetricsCollector
}

// NewCatalogHandler はCatalogHandlerを生成する。collectorはnilでもよい。
func NewCatalogHandler(
	products ProductServiceInterface,
	reviews ReviewServiceInterface,
	stores StoreServiceInterface,
	collector metrics.MetricsCollector,
) *CatalogHandler {
	return &CatalogHandler{
		products:  products,
		reviews:   reviews,
		stores:    stores,
		collector: collector,
	}
}

// productResponse は商品情報のAPIレスポンス。
type productResponse struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	AvgRating   float64   `json:"avg_rating"`
	ReviewCount int       `json:"review_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		AvgRating:   p.AvgRating,
		ReviewCount: p.ReviewCount,
		CreatedAt:   p.CreatedAt,
	}
}

func toProductResponses(products []*model.Product) []productResponse {
	results := make([]productResponse, len(products))
	for i, p := range products {
		results[i] = toProductResponse(p)
	}
	return results
}

// productListResponse は商品一覧のAPIレスポンス。
// next_cursorは次ページ取得に使うcreated_at値（RFC3339）。
type productListResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewResponse(rv *model.Review) reviewResponse {
	return reviewResponse{
		ID:        rv.ID,
		ProductID: rv.ProductID,
		UserID:    rv.UserID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
	}
}

// ratingSummaryResponse は評価集計のAPIレスポンス。
// distributionはインデックス0が評価1の件数。
type ratingSummaryResponse struct {
	AvgRating    float64 `json:"avg_rating"`
	ReviewCount  int     `json:"review_count"`
	Distribution [5]int  `json:"distribution"`
}

func toRatingSummaryResponse(summary *model.RatingSummary) ratingSummaryResponse {
	return ratingSummaryResponse{
		AvgRating:    summary.AvgRating,
		ReviewCount:  summary.ReviewCount,
		Distribution: summary.Distribution,
	}
}

// storePublicResponse は公開店舗ページのAPIレスポンス。
type storePublicResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	WebsiteURL  string    `json:"website_url"`
	HasLogo     bool      `json:"has_logo"`
	CreatedAt   time.Time `json:"created_at"`
}

// parseCursor はクエリパラメータからカーソル（RFC3339）を解析する。
// 不在の場合はゼロ値を返す。
func parseCursor(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("cursor")
	if raw == "" {
		return time.Time{}, nil
	}
	cursor, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, model.NewInvalidInputError("カーソルの形式が正しくありません。")
	}
	return cursor, nil
}

// parseLimit はクエリパラメータから件数上限を解析する。不在の場合は0を返す。
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewInvalidInputError("limitは整数で指定してください。")
	}
	return limit, nil
}

// nextCursorFor は一覧の最終要素のcreated_atを次ページカーソルとして返す。
func nextCursorFor(createdAt time.Time, count, limit int) string {
	if limit > 0 && count < limit {
		return ""
	}
	if count == 0 {
		return ""
	}
	return createdAt.Format(time.RFC3339Nano)
}

// SearchProducts は商品を検索する。
// GET /api/products?keyword=&sort=&cursor=&limit=
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	cursor, err := parseCursor(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	keyword := r.URL.Query().Get("keyword")
	sort := model.ProductSort(r.URL.Query().Get("sort"))

	products, err := h.products.Search(r.Context(), keyword, sort, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := productListResponse{Products: toProductResponses(products)}
	if len(products) > 0 {
		resp.NextCursor = nextCursorFor(products[len(products)-1].CreatedAt, len(products), limit)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct は商品詳細を取得する。
// GET /api/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// ListProductReviews は商品のレビュー一覧と評価集計を取得する。
// GET /api/products/{id}/reviews?cursor=&limit=
func (h *CatalogHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	cursor, err := parseCursor(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	reviews, err := h.reviews.ListByProduct(r.Context(), productID, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	summary, err := h.reviews.ProductSummary(r.Context(), productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		results[i] = toReviewResponse(rv)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reviews": results,
		"summary": toRatingSummaryResponse(summary),
	})
}

// GetStorePage は公開店舗ページを取得する。
// 有効化済みでない店舗は存在しないものとして扱う。
// GET /api/stores/{id}
func (h *CatalogHandler) GetStorePage(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")

	store, err := h.stores.GetStore(r.Context(), storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if store.Status != model.StoreStatusActive {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewStoreNotFoundError(storeID))
		return
	}

	summary, err := h.reviews.StoreSummary(r.Context(), storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"store": storePublicResponse{
			ID:          store.ID,
			Name:        store.Name,
			Description: store.Description,
			WebsiteURL:  store.WebsiteURL,
			HasLogo:     len(store.LogoData) > 0,
			CreatedAt:   store.CreatedAt,
		},
		"rating": toRatingSummaryResponse(summary),
	})
}

// ListStoreProducts は公開店舗の商品一覧を取得する。
// GET /api/stores/{id}/products
func (h *CatalogHandler) ListStoreProducts(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")

	products, err := h.products.ListPublicByStore(r.Context(), storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productListResponse{Products: toProductResponses(products)})
}

// GetStoreLogo は店舗のロゴ画像を返す。
// GET /api/stores/{id}/logo
func (h *CatalogHandler) GetStoreLogo(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")

	store, err := h.stores.GetStore(r.Context(), storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if store.Status != model.StoreStatusActive || len(store.LogoData) == 0 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewStoreNotFoundError(storeID))
		return
	}

	w.Header().Set("Content-Type", store.LogoMime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(store.LogoData)
}

// activationResponse は店舗有効化のAPIレスポンス。
type activationResponse struct {
	Result    string `json:"result"`
	StoreName string `json:"store_name,omitempty"`
}

// ActivateStore は有効化トークンを検証して店舗を有効化する。
// トークン自体が所有の証明となるため、このエンドポイントは認証不要。
// GET /api/stores/activate?token=xxx
func (h *CatalogHandler) ActivateStore(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	result, store, err := h.stores.Activate(r.Context(), token)
	if err != nil && result != model.ActivationError {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordActivation(string(result))
	}

	resp := activationResponse{Result: string(result)}
	if store != nil {
		resp.StoreName = store.Name
	}

	switch result {
	case model.ActivationSuccess:
		writeJSON(w, http.StatusOK, resp)
	case model.ActivationExpired:
		writeJSON(w, http.StatusGone, resp)
	case model.ActivationInvalid:
		writeJSON(w, http.StatusNotFound, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}
