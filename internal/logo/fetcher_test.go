package logo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const (
	testTimeout = 5 * time.Second
	testMaxSize = 2 * 1024 * 1024
)

// mockSSRFGuard はSSRF検証のモック。
type mockSSRFGuard struct {
	blockAll bool
}

func (m *mockSSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (m *mockSSRFGuard) ValidateURL(rawURL string) error {
	if m.blockAll {
		return fmt.Errorf("blocked by SSRF guard")
	}
	return nil
}

func newTestFetcher(guard SSRFValidator) *Fetcher {
	return NewFetcher(guard, testTimeout, testMaxSize)
}

// TestFetcher_ImplementsInterface はFetcherがインターフェースを満たすことを検証する。
func TestFetcher_ImplementsInterface(t *testing.T) {
	var _ FetcherService = (*Fetcher)(nil)
}

// TestFetcher_FetchLogo_Success はロゴ取得成功時にデータとMIMEタイプを返すことをテストする。
func TestFetcher_FetchLogo_Success(t *testing.T) {
	// PNG画像のヘッダー（最小限のテストデータ）
	pngData := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logo.png" {
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockSSRFGuard{})

	data, mimeType, err := fetcher.FetchLogo(context.Background(), server.URL+"/logo.png")
	if err != nil {
		t.Fatalf("FetchLogo returned error: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty logo data")
	}
	if mimeType != "image/png" {
		t.Errorf("expected MIME type 'image/png', got %q", mimeType)
	}
}

// TestFetcher_FetchLogo_404 は404の場合にnilデータを返すことをテストする。
func TestFetcher_FetchLogo_404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockSSRFGuard{})

	data, mimeType, err := fetcher.FetchLogo(context.Background(), server.URL+"/logo.png")
	// 取得失敗時はエラーではなくnilデータを返す（ロゴなしとして扱う）
	if err != nil {
		t.Fatalf("FetchLogo should not return error on 404, got: %v", err)
	}
	if data != nil {
		t.Error("expected nil logo data on 404")
	}
	if mimeType != "" {
		t.Errorf("expected empty MIME type on 404, got %q", mimeType)
	}
}

// TestFetcher_FetchLogo_EmptyURL は空URLの場合にnilデータを返すことをテストする。
func TestFetcher_FetchLogo_EmptyURL(t *testing.T) {
	fetcher := newTestFetcher(&mockSSRFGuard{})

	data, mimeType, err := fetcher.FetchLogo(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchLogo should not return error on empty URL, got: %v", err)
	}
	if data != nil {
		t.Error("expected nil logo data on empty URL")
	}
	if mimeType != "" {
		t.Errorf("expected empty MIME type on empty URL, got %q", mimeType)
	}
}

// TestFetcher_FetchLogo_NonImage は画像以外のContent-Typeの場合にnilデータを返すことをテストする。
func TestFetcher_FetchLogo_NonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockSSRFGuard{})

	data, _, err := fetcher.FetchLogo(context.Background(), server.URL+"/logo.png")
	if err != nil {
		t.Fatalf("FetchLogo should not return error on non-image response, got: %v", err)
	}
	if data != nil {
		t.Error("expected nil logo data for non-image response")
	}
}

// TestFetcher_FetchLogoForSite はサイトURLから /favicon.ico を取得することをテストする。
func TestFetcher_FetchLogoForSite_FromFaviconICO(t *testing.T) {
	icoData := []byte{0x00, 0x00, 0x01, 0x00}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			w.Header().Set("Content-Type", "image/x-icon")
			w.Write(icoData)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockSSRFGuard{})

	data, mimeType, err := fetcher.FetchLogoForSite(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchLogoForSite returned error: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty logo data")
	}
	if mimeType != "image/x-icon" {
		t.Errorf("expected MIME type 'image/x-icon', got %q", mimeType)
	}
}

// TestFetcher_FetchLogoForSite_Failure は取得に失敗した場合にnilを返すテスト。
func TestFetcher_FetchLogoForSite_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockSSRFGuard{})

	data, mimeType, err := fetcher.FetchLogoForSite(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchLogoForSite should not return error, got: %v", err)
	}
	if data != nil {
		t.Error("expected nil logo data")
	}
	if mimeType != "" {
		t.Errorf("expected empty MIME type, got %q", mimeType)
	}
}

// TestFetcher_FetchLogo_SSRFBlocked はSSRFガードがブロックした場合にnilデータを返すテスト。
func TestFetcher_FetchLogo_SSRFBlocked(t *testing.T) {
	fetcher := newTestFetcher(&mockSSRFGuard{blockAll: true})

	data, mimeType, err := fetcher.FetchLogo(context.Background(), "http://192.168.1.1/logo.png")
	// SSRF検証失敗時もエラーではなくnilデータを返す
	if err != nil {
		t.Fatalf("FetchLogo should not return error on SSRF block, got: %v", err)
	}
	if data != nil {
		t.Error("expected nil logo data on SSRF block")
	}
	if mimeType != "" {
		t.Errorf("expected empty MIME type on SSRF block, got %q", mimeType)
	}
}

// TestFetcher_FetchLogo_LargeResponse はレスポンスが大きすぎる場合にnilデータを返すテスト。
func TestFetcher_FetchLogo_LargeResponse(t *testing.T) {
	largeData := make([]byte, testMaxSize+1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(largeData)
	}))
	defer server.Close()

	fetcher := newTestFetcher(&mockSSRFGuard{})

	data, _, err := fetcher.FetchLogo(context.Background(), server.URL+"/logo.png")
	if err != nil {
		t.Fatalf("FetchLogo should not return error on large response, got: %v", err)
	}
	if data != nil {
		t.Error("expected nil logo data for large response")
	}
}

// TestGuessDefaultLogoURL は店舗サイトURLからデフォルトのロゴURLを推測する関数のテスト。
func TestGuessDefaultLogoURL(t *testing.T) {
	tests := []struct {
		siteURL  string
		expected string
	}{
		{"https://example.com", "https://example.com/favicon.ico"},
		{"https://example.com/", "https://example.com/favicon.ico"},
		{"https://example.com/shop", "https://example.com/favicon.ico"},
		{"https://example.com:8080", "https://example.com:8080/favicon.ico"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("siteURL=%s", tt.siteURL), func(t *testing.T) {
			result := guessDefaultLogoURL(tt.siteURL)
			if result != tt.expected {
				t.Errorf("guessDefaultLogoURL(%q) = %q, want %q", tt.siteURL, result, tt.expected)
			}
		})
	}
}
