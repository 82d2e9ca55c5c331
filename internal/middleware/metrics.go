package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/ichiba/internal/metrics"
)

// NewMetricsMiddleware はHTTPステータスコードとレイテンシを記録するミドルウェアを返す。
// collectorがnilの場合は何も記録せずに委譲する。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if collector == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestLatency(time.Since(start))
		})
	}
}
