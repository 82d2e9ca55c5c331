package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ichiba/internal/auth"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/order"
)

// mockAuthService はAuthServiceInterfaceのモック。
type mockAuthService struct {
	registerFn       func(ctx context.Context, email, name, password string) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (string, *model.User, error)
	getCurrentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	return m.registerFn(ctx, email, name, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return m.getCurrentUserFn(ctx, userID)
}

// mockStoreService はStoreServiceInterfaceのモック。
type mockStoreService struct {
	registerFn         func(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error)
	getStoreFn         func(ctx context.Context, storeID string) (*model.Store, error)
	getStoreByUserFn   func(ctx context.Context, userID string) (*model.Store, error)
	updateProfileFn    func(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error)
	listByStatusFn     func(ctx context.Context, status model.StoreStatus) ([]*model.Store, error)
	updateStatusFn     func(ctx context.Context, storeID string, requested model.StoreStatus) (*model.Store, error)
	resendActivationFn func(ctx context.Context, storeID string) (*model.Store, error)
	activateFn         func(ctx context.Context, token string) (model.ActivationResult, *model.Store, error)
}

func (m *mockStoreService) Register(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error) {
	return m.registerFn(ctx, userID, name, description, websiteURL, picEmail)
}

func (m *mockStoreService) GetStore(ctx context.Context, storeID string) (*model.Store, error) {
	return m.getStoreFn(ctx, storeID)
}

func (m *mockStoreService) GetStoreByUser(ctx context.Context, userID string) (*model.Store, error) {
	return m.getStoreByUserFn(ctx, userID)
}

func (m *mockStoreService) UpdateProfile(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error) {
	return m.updateProfileFn(ctx, userID, name, description, websiteURL, picEmail)
}

func (m *mockStoreService) ListByStatus(ctx context.Context, status model.StoreStatus) ([]*model.Store, error) {
	return m.listByStatusFn(ctx, status)
}

func (m *mockStoreService) UpdateStatus(ctx context.Context, storeID string, requested model.StoreStatus) (*model.Store, error) {
	return m.updateStatusFn(ctx, storeID, requested)
}

func (m *mockStoreService) ResendActivation(ctx context.Context, storeID string) (*model.Store, error) {
	return m.resendActivationFn(ctx, storeID)
}

func (m *mockStoreService) Activate(ctx context.Context, token string) (model.ActivationResult, *model.Store, error) {
	return m.activateFn(ctx, token)
}

// mockProductService はProductServiceInterfaceのモック。
type mockProductService struct {
	createFn            func(ctx context.Context, userID, name, description string, price int64, stock int) (*model.Product, error)
	updateFn            func(ctx context.Context, userID, productID, name, description string, price int64, stock int) (*model.Product, error)
	deleteFn            func(ctx context.Context, userID, productID string) error
	getProductFn        func(ctx context.Context, productID string) (*model.Product, error)
	listByStoreFn       func(ctx context.Context, userID string) ([]*model.Product, error)
	listPublicByStoreFn func(ctx context.Context, storeID string) ([]*model.Product, error)
	searchFn            func(ctx context.Context, keyword string, sort model.ProductSort, cursor time.Time, limit int) ([]*model.Product, error)
}

func (m *mockProductService) Create(ctx context.Context, userID, name, description string, price int64, stock int) (*model.Product, error) {
	return m.createFn(ctx, userID, name, description, price, stock)
}

func (m *mockProductService) Update(ctx context.Context, userID, productID, name, description string, price int64, stock int) (*model.Product, error) {
	return m.updateFn(ctx, userID, productID, name, description, price, stock)
}

func (m *mockProductService) Delete(ctx context.Context, userID, productID string) error {
	return m.deleteFn(ctx, userID, productID)
}

func (m *mockProductService) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	return m.getProductFn(ctx, productID)
}

func (m *mockProductService) ListByStore(ctx context.Context, userID string) ([]*model.Product, error) {
	return m.listByStoreFn(ctx, userID)
}

func (m *mockProductService) ListPublicByStore(ctx context.Context, storeID string) ([]*model.Product, error) {
	return m.listPublicByStoreFn(ctx, storeID)
}

func (m *mockProductService) Search(ctx context.Context, keyword string, sort model.ProductSort, cursor time.Time, limit int) ([]*model.Product, error) {
	return m.searchFn(ctx, keyword, sort, cursor, limit)
}

// mockReviewService はReviewServiceInterfaceのモック。
type mockReviewService struct {
	postFn           func(ctx context.Context, userID, productID string, rating int, comment string) (*model.Review, error)
	listByProductFn  func(ctx context.Context, productID string, cursor time.Time, limit int) ([]*model.Review, error)
	productSummaryFn func(ctx context.Context, productID string) (*model.RatingSummary, error)
	storeSummaryFn   func(ctx context.Context, storeID string) (*model.RatingSummary, error)
}

func (m *mockReviewService) Post(ctx context.Context, userID, productID string, rating int, comment string) (*model.Review, error) {
	return m.postFn(ctx, userID, productID, rating, comment)
}

func (m *mockReviewService) ListByProduct(ctx context.Context, productID string, cursor time.Time, limit int) ([]*model.Review, error) {
	return m.listByProductFn(ctx, productID, cursor, limit)
}

func (m *mockReviewService) ProductSummary(ctx context.Context, productID string) (*model.RatingSummary, error) {
	return m.productSummaryFn(ctx, productID)
}

func (m *mockReviewService) StoreSummary(ctx context.Context, storeID string) (*model.RatingSummary, error) {
	return m.storeSummaryFn(ctx, storeID)
}

// mockOrderService はOrderServiceInterfaceのモック。
type mockOrderService struct {
	checkoutFn func(ctx context.Context, userID string, items []order.CheckoutItem) (*model.Order, error)
}

func (m *mockOrderService) Checkout(ctx context.Context, userID string, items []order.CheckoutItem) (*model.Order, error) {
	return m.checkoutFn(ctx, userID, items)
}

// mockReportService はReportServiceInterfaceのモック。
type mockReportService struct {
	salesFn           func(ctx context.Context, userID string, from, to time.Time) ([]model.SalesReportRow, error)
	writeSalesCSVFn   func(ctx context.Context, w io.Writer, userID string, from, to time.Time) error
	stockFn           func(ctx context.Context, userID string) ([]*model.Product, error)
	ratingsFn         func(ctx context.Context, userID string) (*model.RatingSummary, error)
	platformSummaryFn func(ctx context.Context) (*model.PlatformSummary, error)
}

func (m *mockReportService) Sales(ctx context.Context, userID string, from, to time.Time) ([]model.SalesReportRow, error) {
	return m.salesFn(ctx, userID, from, to)
}

func (m *mockReportService) WriteSalesCSV(ctx context.Context, w io.Writer, userID string, from, to time.Time) error {
	return m.writeSalesCSVFn(ctx, w, userID, from, to)
}

func (m *mockReportService) Stock(ctx context.Context, userID string) ([]*model.Product, error) {
	return m.stockFn(ctx, userID)
}

func (m *mockReportService) Ratings(ctx context.Context, userID string) (*model.RatingSummary, error) {
	return m.ratingsFn(ctx, userID)
}

func (m *mockReportService) PlatformSummary(ctx context.Context) (*model.PlatformSummary, error) {
	return m.platformSummaryFn(ctx)
}

// mockCollector はメトリクス記録を検証するモック。
type mockCollector struct {
	activations    []string
	ordersPlaced   int
	orderItems     int
	outOfStock     int
	reviewsPosted  int
	statusRecorded []int
}

func (m *mockCollector) RecordActivation(result string) { m.activations = append(m.activations, result) }

func (m *mockCollector) RecordOrderPlaced(itemCount int) {
	m.ordersPlaced++
	m.orderItems += itemCount
}

func (m *mockCollector) RecordOutOfStock()   { m.outOfStock++ }
func (m *mockCollector) RecordReviewPosted() { m.reviewsPosted++ }

func (m *mockCollector) RecordHTTPStatus(statusCode int) {
	m.statusRecorded = append(m.statusRecorded, statusCode)
}

func (m *mockCollector) RecordRequestLatency(duration time.Duration) {}
func (m *mockCollector) RecordProductsPurged(count int64)            {}
func (m *mockCollector) RecordRatingAggregation(updated int)         {}
func (m *mockCollector) SetStoreCount(status string, count int)      {}

// authedRequest は認証済みクレームをコンテキストに注入したリクエストを返す。
func authedRequest(r *http.Request, userID string, role model.Role) *http.Request {
	claims := &auth.Claims{UserID: userID, Role: role}
	return r.WithContext(middleware.ContextWithClaims(r.Context(), claims))
}

// withURLParam はchiのURLパラメータをコンテキストに注入したリクエストを返す。
// ハンドラーをルーター経由ではなく直接呼び出すテストで使用する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
