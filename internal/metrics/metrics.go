// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordActivation(result string)
	RecordOrderPlaced(itemCount int)
	RecordOutOfStock()
	RecordReviewPosted()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordProductsPurged(count int64)
	RecordRatingAggregation(updatedProducts int)
	SetStoreCount(status string, count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	activations     *prometheus.CounterVec
	orders          prometheus.Counter
	orderItems      prometheus.Counter
	outOfStock      prometheus.Counter
	reviews         prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	productsPurged  prometheus.Counter
	aggregationRuns prometheus.Counter
	storeCount      *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ichiba_store_activation_total",
			Help: "店舗有効化試行の結果別合計数",
		}, []string{"result"}),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_orders_total",
			Help: "作成された注文の合計数",
		}),
		orderItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_order_items_total",
			Help: "注文明細行の合計数",
		}),
		outOfStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_out_of_stock_total",
			Help: "在庫不足で失敗した注文の合計数",
		}),
		reviews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_reviews_posted_total",
			Help: "投稿されたレビューの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ichiba_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ichiba_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		productsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_products_purged_total",
			Help: "物理削除された論理削除済み商品の合計数",
		}),
		aggregationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_rating_aggregation_products_total",
			Help: "評価集計バッチで更新された商品の合計数",
		}),
		storeCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ichiba_stores",
			Help: "状態別の店舗数",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.activations,
		c.orders,
		c.orderItems,
		c.outOfStock,
		c.reviews,
		c.httpStatus,
		c.requestLatency,
		c.productsPurged,
		c.aggregationRuns,
		c.storeCount,
	)

	return c
}

// RecordActivation は有効化試行の結果（invalid/expired/success/error）を記録する。
func (c *Collector) RecordActivation(result string) {
	c.activations.WithLabelValues(result).Inc()
}

// RecordOrderPlaced は注文の作成を記録する。
func (c *Collector) RecordOrderPlaced(itemCount int) {
	c.orders.Inc()
	c.orderItems.Add(float64(itemCount))
}

// RecordOutOfStock は在庫不足による注文失敗を記録する。
func (c *Collector) RecordOutOfStock() {
	c.outOfStock.Inc()
}

// RecordReviewPosted はレビュー投稿を記録する。
func (c *Collector) RecordReviewPosted() {
	c.reviews.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordProductsPurged は物理削除された商品数を記録する。
func (c *Collector) RecordProductsPurged(count int64) {
	c.productsPurged.Add(float64(count))
}

// RecordRatingAggregation は評価集計バッチで更新された商品数を記録する。
func (c *Collector) RecordRatingAggregation(updatedProducts int) {
	c.aggregationRuns.Add(float64(updatedProducts))
}

// SetStoreCount は状態別の店舗数を設定する（ワーカーが定期更新する）。
func (c *Collector) SetStoreCount(status string, count int) {
	c.storeCount.WithLabelValues(status).Set(float64(count))
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
