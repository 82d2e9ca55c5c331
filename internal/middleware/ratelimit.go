package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	LoginRate       rate.Limit    // ログイン試行のレート（req/sec）
	LoginBurst      int           // ログイン試行のバーストサイズ
	ReviewRate      rate.Limit    // レビュー投稿のレート（req/sec）
	ReviewBurst     int           // レビュー投稿のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、ログイン 10 req/min/IP、レビュー投稿 10 req/min/user
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		LoginRate:       rate.Limit(10.0 / 60.0),
		LoginBurst:      10,
		ReviewRate:      rate.Limit(10.0 / 60.0),
		ReviewBurst:     10,
		CleanupInterval: 5 * time.Minute,
	}
}

// PerMinuteRateLimiterConfig はreq/min単位の設定値からRateLimiterConfigを構築する。
func PerMinuteRateLimiterConfig(general, login, review int) RateLimiterConfig {
	cfg := DefaultRateLimiterConfig()
	if general > 0 {
		cfg.GeneralRate = rate.Limit(float64(general) / 60.0)
		cfg.GeneralBurst = general
	}
	if login > 0 {
		cfg.LoginRate = rate.Limit(float64(login) / 60.0)
		cfg.LoginBurst = login
	}
	if review > 0 {
		cfg.ReviewRate = rate.Limit(float64(review) / 60.0)
		cfg.ReviewBurst = review
	}
	return cfg
}

// keyedLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterBucket は1種類のレート制限のキー別リミッター群を管理する。
type limiterBucket struct {
	mu       sync.RWMutex
	limiters map[string]*keyedLimiter
	rate     rate.Limit
	burst    int
}

func newLimiterBucket(r rate.Limit, burst int) *limiterBucket {
	return &limiterBucket{
		limiters: make(map[string]*keyedLimiter),
		rate:     r,
		burst:    burst,
	}
}

// getOrCreate はキーのリミッターを取得または作成する。
func (b *limiterBucket) getOrCreate(key string) *rate.Limiter {
	b.mu.RLock()
	kl, exists := b.limiters[key]
	b.mu.RUnlock()

	if exists {
		b.mu.Lock()
		kl.lastAccess = time.Now()
		b.mu.Unlock()
		return kl.limiter
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// ダブルチェック
	if kl, exists := b.limiters[key]; exists {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(b.rate, b.burst)
	b.limiters[key] = &keyedLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// count は現在管理されているエントリ数を返す。
func (b *limiterBucket) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.limiters)
}

// cleanup は最終アクセス時刻がttlを超えたエントリを削除する。
func (b *limiterBucket) cleanup(ttl time.Duration) {
	now := time.Now()
	b.mu.Lock()
	for key, kl := range b.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(b.limiters, key)
		}
	}
	b.mu.Unlock()
}

// RateLimiter はキーごとのレート制限を管理する。
// API全般（ユーザー単位）、ログイン試行（IP単位）、
// レビュー投稿（ユーザー単位）の3種類を提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterBucket
	login   *limiterBucket
	review  *limiterBucket
	stopCh  chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterBucket(config.GeneralRate, config.GeneralBurst),
		login:   newLimiterBucket(config.LoginRate, config.LoginBurst),
		review:  newLimiterBucket(config.ReviewRate, config.ReviewBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにユーザーIDが含まれている必要がある（RequireAuthの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.userKeyedMiddleware(rl.general, "general")
}

// ReviewMiddleware はレビュー投稿専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) ReviewMiddleware() func(next http.Handler) http.Handler {
	return rl.userKeyedMiddleware(rl.review, "review")
}

// LoginMiddleware はログイン試行のレート制限ミドルウェアを返す。
// 未認証エンドポイントのため、接続元IPアドレスをキーとする。
func (rl *RateLimiter) LoginMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !rl.login.getOrCreate(key).Allow() {
				writeRateLimitResponse(w, rl.config.LoginRate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", key),
					slog.String("limit_type", "login"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// userKeyedMiddleware はユーザーIDをキーとするレート制限ミドルウェアを構築する。
func (rl *RateLimiter) userKeyedMiddleware(bucket *limiterBucket, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			if !bucket.getOrCreate(userID).Allow() {
				writeRateLimitResponse(w, bucket.rate)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("limit_type", limitType),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// LoginLimiterCount は現在管理されているログインリミッターのエントリ数を返す。
func (rl *RateLimiter) LoginLimiterCount() int {
	return rl.login.count()
}

// ReviewLimiterCount は現在管理されているレビューリミッターのエントリ数を返す。
func (rl *RateLimiter) ReviewLimiterCount() int {
	return rl.review.count()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	rl.general.cleanup(ttl)
	rl.login.cleanup(ttl)
	rl.review.cleanup(ttl)
}

// clientIP は接続元IPアドレスを取得する。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
		"action":   "Please wait and retry after the specified time.",
	})
}
