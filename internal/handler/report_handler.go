package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// ReportServiceInterface はレポートハンドラーが必要とするサービスインターフェース。
type ReportServiceInterface interface {
	// Sales は自店舗の商品別売上集計を期間指定で返す。
	Sales(ctx context.Context, userID string, from, to time.Time) ([]model.SalesReportRow, error)
	// WriteSalesCSV は売上集計をCSV形式で書き出す。
	WriteSalesCSV(ctx context.Context, w io.Writer, userID string, from, to time.Time) error
	// Stock は自店舗の在庫一覧を返す。
	Stock(ctx context.Context, userID string) ([]*model.Product, error)
	// Ratings は自店舗の評価集計を返す。
	Ratings(ctx context.Context, userID string) (*model.RatingSummary, error)
	// PlatformSummary はプラットフォーム全体の集計を返す。
	PlatformSummary(ctx context.Context) (*model.PlatformSummary, error)
}

// ReportHandler は出店者レポートのHTTPハンドラー。
type ReportHandler struct {
	service ReportServiceInterface
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(service ReportServiceInterface) *ReportHandler {
	return &ReportHandler{service: service}
}

// salesReportRowResponse は売上レポート1行のAPIレスポンス。
type salesReportRowResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Units       int    `json:"units"`
	Revenue     int64  `json:"revenue"`
}

// stockRowResponse は在庫レポート1行のAPIレスポンス。
type stockRowResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int    `json:"stock"`
	Price       int64  `json:"price"`
}

// parseReportRange はfrom/toクエリパラメータを解析する。
// RFC3339または日付のみ（2006-01-02）を受け付ける。不在はゼロ値。
func parseReportRange(r *http.Request) (from, to time.Time, err error) {
	from, err = parseReportTime(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err = parseReportTime(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func parseReportTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, model.NewInvalidInputError("日付の形式が正しくありません。")
	}
	return t, nil
}

// Sales は自店舗の売上レポートを取得する。
// GET /api/seller/reports/sales?from=&to=
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	from, to, err := parseReportRange(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rows, err := h.service.Sales(r.Context(), userID, from, to)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]salesReportRowResponse, len(rows))
	for i, row := range rows {
		results[i] = salesReportRowResponse{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Units:       row.Units,
			Revenue:     row.Revenue,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"rows": results})
}

// SalesCSV は売上レポートをCSVファイルとしてダウンロードさせる。
// 途中のエラーで不完全なCSVを返さないよう、一度バッファに書き出してから送出する。
// GET /api/seller/reports/sales.csv?from=&to=
func (h *ReportHandler) SalesCSV(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	from, to, err := parseReportRange(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.WriteSalesCSV(r.Context(), &buf, userID, from, to); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales_report.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Stock は自店舗の在庫レポートを取得する。
// GET /api/seller/reports/stock
func (h *ReportHandler) Stock(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	products, err := h.service.Stock(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]stockRowResponse, len(products))
	for i, p := range products {
		results[i] = stockRowResponse{
			ProductID:   p.ID,
			ProductName: p.Name,
			Stock:       p.Stock,
			Price:       p.Price,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"rows": results})
}

// Ratings は自店舗の評価レポートを取得する。
// GET /api/seller/reports/ratings
func (h *ReportHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	summary, err := h.service.Ratings(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRatingSummaryResponse(summary))
}
