// Package auth はパスワード認証とセッショントークンの発行・検証を提供する。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/ichiba/internal/model"
)

// ErrInvalidToken はトークンの署名・期限・形式の検証失敗を表す。
var ErrInvalidToken = errors.New("invalid session token")

// Claims はセッショントークンに埋め込むクレーム。
// Roleはトークン発行時点のロールのスナップショットであり、
// ロール変更後は再ログインするまで反映されない。
type Claims struct {
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService はHMAC署名付きセッショントークンの発行と検証を行う。
type TokenService struct {
	signingKey []byte
	issuer     string
	maxAge     time.Duration
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(signingKey string, maxAge time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     "ichiba",
		maxAge:     maxAge,
	}
}

// MaxAge はトークンの有効期間を返す。Cookieの有効期間設定に使用する。
func (s *TokenService) MaxAge() time.Duration {
	return s.maxAge
}

// Issue は指定ユーザーのセッショントークンを発行する。
func (s *TokenService) Issue(userID string, role model.Role) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
// 署名不正・期限切れ・形式不正はすべてErrInvalidTokenにまとめる。
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
