// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーのロールを表す閉じた列挙型。
// 許可ロールリストとの照合に網羅性チェックを効かせるため、
// 生文字列ではなく型として扱う。
type Role string

const (
	// RoleUser は一般ユーザー（購入者）。
	RoleUser Role = "user"
	// RoleSeller は出店者。自店舗と商品の管理が可能。
	RoleSeller Role = "seller"
	// RoleAdmin は運営管理者。出店審査とプラットフォーム全体のレポート閲覧が可能。
	RoleAdmin Role = "admin"
)

// IsValid はロールが定義済みのいずれかであるかを検証する。
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}

// User はマーケットプレイスの利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
