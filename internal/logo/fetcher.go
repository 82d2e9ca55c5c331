// Package logo は店舗ロゴの取得機能を提供する。
package logo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// FetcherService は店舗ロゴ取得のインターフェース。
type FetcherService interface {
	// FetchLogo は指定URLからロゴ画像を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	FetchLogo(ctx context.Context, logoURL string) (data []byte, mimeType string, err error)

	// FetchLogoForSite は店舗サイトURLからロゴを推測して取得する。
	// /favicon.ico を試行し、取得失敗時はnilデータと空MIMEを返す。
	FetchLogoForSite(ctx context.Context, siteURL string) (data []byte, mimeType string, err error)
}

// Fetcher はロゴ取得機能の実装。
// ロゴ取得はベストエフォートで、失敗しても店舗の有効化は妨げない。
type Fetcher struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *Fetcher {
	return &Fetcher{
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// FetchLogo は指定URLからロゴ画像を取得する。
// 取得失敗時はnilデータと空MIMEを返す（ロゴなしとして保存する）。
func (f *Fetcher) FetchLogo(ctx context.Context, logoURL string) ([]byte, string, error) {
	if logoURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(logoURL); err != nil {
			slog.Warn("ロゴ取得: SSRFブロック", "url", logoURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		slog.Warn("ロゴ取得: リクエスト作成失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Ichiba/1.0 Marketplace")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("ロゴ取得: HTTPリクエスト失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	// 2xx以外はロゴ取得失敗として扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("ロゴ取得: HTTPステータス異常", "url", logoURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（最大サイズまで）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		slog.Warn("ロゴ取得: レスポンス読み取り失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}

	// サイズ超過チェック
	if int64(len(body)) > f.maxSize {
		slog.Warn("ロゴ取得: サイズ超過", "url", logoURL, "size", len(body))
		return nil, "", nil
	}

	contentType := resp.Header.Get("Content-Type")
	mimeType := extractMimeType(contentType)

	// 画像でない場合はnilを返す
	if !isImageMime(mimeType) {
		slog.Warn("ロゴ取得: 画像以外のContent-Type", "url", logoURL, "contentType", contentType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// FetchLogoForSite は店舗サイトURLからロゴを推測して取得する。
// サイトHTMLのheadからアイコンリンクを検出して順に試行し、
// 見つからない場合は /favicon.ico にフォールバックする。
// 取得失敗時はnilデータと空MIMEを返す。
func (f *Fetcher) FetchLogoForSite(ctx context.Context, siteURL string) ([]byte, string, error) {
	if siteURL == "" {
		return nil, "", nil
	}

	for _, candidate := range f.discoverIconLinks(ctx, siteURL) {
		data, mimeType, _ := f.FetchLogo(ctx, candidate)
		if data != nil {
			return data, mimeType, nil
		}
	}

	logoURL := guessDefaultLogoURL(siteURL)
	if logoURL == "" {
		return nil, "", nil
	}
	return f.FetchLogo(ctx, logoURL)
}

// discoverIconLinks は店舗サイトのHTMLからアイコンリンク候補を検出する。
// 検出失敗はロゴなしではなくフォールバックに進むだけなので、エラーは返さない。
func (f *Fetcher) discoverIconLinks(ctx context.Context, siteURL string) []string {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(siteURL); err != nil {
			slog.Warn("ロゴ検出: SSRFブロック", "url", siteURL, "error", err)
			return nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "Ichiba/1.0 Marketplace")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("ロゴ検出: HTTPリクエスト失敗", "url", siteURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLSize))
	if err != nil {
		return nil
	}

	return ParseIconLinksFromHTML(body, siteURL)
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *Fetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxSize)
	}
	return &http.Client{Timeout: f.timeout}
}

// guessDefaultLogoURL は店舗サイトURLからデフォルトのロゴURLを推測する。
func guessDefaultLogoURL(siteURL string) string {
	if siteURL == "" {
		return ""
	}

	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}

	// パスを/favicon.icoに設定
	u.Path = "/favicon.ico"
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	// セミコロンの前の部分（charset等を除去）
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	imageTypes := []string{
		"image/png",
		"image/jpeg",
		"image/gif",
		"image/svg+xml",
		"image/x-icon",
		"image/vnd.microsoft.icon",
		"image/webp",
		"image/bmp",
		"image/ico",
	}
	for _, t := range imageTypes {
		if mimeType == t {
			return true
		}
	}
	// image/ で始まるものは許可
	return strings.HasPrefix(mimeType, "image/")
}

// compile-time interface check
var _ FetcherService = (*Fetcher)(nil)
