// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/ichiba/internal/auth"
	"github.com/hitoshi/ichiba/internal/model"
)

// SessionCookieName はセッショントークンを格納するCookie名。
const SessionCookieName = "ichiba_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// claimsContextKey はリクエストコンテキストに認証済みクレームを格納するためのキー。
var claimsContextKey = contextKey("session_claims")

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// auth.TokenServiceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// RequireAuth はHTTP Only Cookieからセッショントークンを読み取り、
// 検証するミドルウェアを返す。認証済みクレームをリクエストコンテキストに注入する。
//   - Cookie不在または空: 401 UNAUTHENTICATED
//   - 署名不正・期限切れ・形式不正: 401 INVALID_SESSION
//   - rolesが指定され、クレームのロールが含まれない: 403 FORBIDDEN
//
// rolesを指定しない場合は認証済みの全ロールを許可する。
func RequireAuth(verifier TokenVerifier, roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			// 2. トークンの署名と期限を検証
			claims, err := verifier.Verify(cookie.Value)
			if err != nil {
				slog.Info("session token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidSessionError())
				return
			}

			// 3. ロールの許可リストを確認
			// 許可リストが空の場合は全ロールを許可する。
			// ロールクレームが欠落している場合は許可リスト照合に必ず失敗する。
			if len(roles) > 0 && !roleAllowed(claims.Role, roles) {
				slog.Warn("role not permitted",
					slog.String("user_id", claims.UserID),
					slog.String("role", string(claims.Role)),
					slog.String("path", r.URL.Path),
				)
				writeForbiddenResponse(w, claims.Role)
				return
			}

			// 4. 認証済みクレームをコンテキストに注入
			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// roleAllowed はロールが許可リストに含まれるか判定する。
func roleAllowed(role model.Role, allowed []model.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// forbiddenResponseBody は403レスポンスのフォーマット。
// redirectには操作者のロールに応じた遷移先を含める。
type forbiddenResponseBody struct {
	ErrorResponseBody
	Redirect string `json:"redirect"`
}

// writeForbiddenResponse はロール不許可レスポンスを書き込む。
func writeForbiddenResponse(w http.ResponseWriter, role model.Role) {
	apiErr := model.NewForbiddenError()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(forbiddenResponseBody{
		ErrorResponseBody: ErrorResponseBody{
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Category: apiErr.Category,
			Action:   apiErr.Action,
		},
		Redirect: HomePathForRole(role),
	})
}

// HomePathForRole はロールに応じたホーム画面のパスを返す。
func HomePathForRole(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return "/admin"
	case model.RoleSeller:
		return "/seller"
	default:
		return "/"
	}
}

// ContextWithClaims はコンテキストに認証済みクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext はリクエストコンテキストから認証済みクレームを取得する。
// RequireAuthを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("session claims not found in context")
	}
	return claims, nil
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return claims.UserID, nil
}

// RoleFromContext はリクエストコンテキストから認証済みロールを取得する。
func RoleFromContext(ctx context.Context) (model.Role, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}
