// Package model はドメインモデルを定義する。
package model

import "time"

// StoreStatus は店舗の審査・有効化状態を表す。
type StoreStatus string

const (
	// StoreStatusPending は出店申請直後の審査待ち状態（初期状態）。
	StoreStatusPending StoreStatus = "pending"
	// StoreStatusAwaitingActivation は管理者承認済みで、
	// 担当者メールアドレス宛の有効化トークンによる確認待ち状態。
	StoreStatusAwaitingActivation StoreStatus = "awaiting_activation"
	// StoreStatusActive は有効化済みの状態（成功側の終端状態）。
	StoreStatusActive StoreStatus = "active"
	// StoreStatusRejected は却下された状態（失敗側の終端状態）。
	StoreStatusRejected StoreStatus = "rejected"
)

// IsValid は状態が定義済みのいずれかであるかを検証する。
func (s StoreStatus) IsValid() bool {
	switch s {
	case StoreStatusPending, StoreStatusAwaitingActivation, StoreStatusActive, StoreStatusRejected:
		return true
	default:
		return false
	}
}

// CanTransitionTo は状態遷移が許可されているかを検証する。
//
// 許可される遷移:
//
//	pending              → awaiting_activation, rejected
//	awaiting_activation  → active, rejected
//
// active と rejected は終端状態であり、そこからの遷移は定義されない。
// awaiting_activation → active の遷移は有効化トークンの検証経由でのみ行うこと。
func (s StoreStatus) CanTransitionTo(next StoreStatus) bool {
	switch s {
	case StoreStatusPending:
		return next == StoreStatusAwaitingActivation || next == StoreStatusRejected
	case StoreStatusAwaitingActivation:
		return next == StoreStatusActive || next == StoreStatusRejected
	default:
		return false
	}
}

// Store は出店者の店舗アカウントを表す。
// ActivationTokenとActivationExpiresは両方non-nilか両方nilのいずれかであること
// （DBのCHECK制約とコードの両方で保証する）。
type Store struct {
	ID                string
	UserID            string
	Name              string
	Description       string
	WebsiteURL        string
	PICEmail          string // 担当者（PIC）のメールアドレス。有効化メールの宛先。
	LogoData          []byte
	LogoMime          string
	Status            StoreStatus
	ActivationToken   *string
	ActivationExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ActivationResult は有効化トークン検証の結果語彙を表す。
// 検証失敗はユーザー操作で回復可能なためエラーではなく結果として返す。
type ActivationResult string

const (
	// ActivationInvalid はトークンに一致する店舗が存在しない。
	ActivationInvalid ActivationResult = "invalid"
	// ActivationExpired はトークンは一致したが有効期限を過ぎている。
	ActivationExpired ActivationResult = "expired"
	// ActivationSuccess は店舗がactiveに遷移した。
	ActivationSuccess ActivationResult = "success"
	// ActivationError は永続化操作が失敗した。
	ActivationError ActivationResult = "error"
)
