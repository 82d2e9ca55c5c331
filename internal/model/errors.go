// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, store, product, order, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated         = "UNAUTHENTICATED"
	ErrCodeInvalidSession          = "INVALID_SESSION"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail          = "DUPLICATE_EMAIL"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeStoreNotFound           = "STORE_NOT_FOUND"
	ErrCodeStoreNotActive          = "STORE_NOT_ACTIVE"
	ErrCodeDuplicateStore          = "DUPLICATE_STORE"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidPrice            = "INVALID_PRICE"
	ErrCodeOutOfStock              = "OUT_OF_STOCK"
	ErrCodeInvalidRating           = "INVALID_RATING"
	ErrCodeDuplicateReview         = "DUPLICATE_REVIEW"
	ErrCodeInvalidURL              = "INVALID_URL"
	ErrCodeInvalidSort             = "INVALID_SORT"
	ErrCodeInvalidInput            = "INVALID_INPUT"
)

// NewInvalidInputError は入力値検証エラーを生成する。
func NewInvalidInputError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthenticatedError はセッションCookie不在エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidSessionError はセッショントークンの署名・期限検証失敗エラーを生成する。
func NewInvalidSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSession,
		Message:  "セッションが無効または期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewForbiddenError はロール不許可エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "権限のあるアカウントでログインし直してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレス不明とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewStoreNotFoundError は店舗が見つからない場合のエラーを生成する。
func NewStoreNotFoundError(storeID string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreNotFound,
		Message:  fmt.Sprintf("指定された店舗が見つかりません: %s", storeID),
		Category: "store",
		Action:   "店舗IDを確認してください。",
	}
}

// NewStoreNotActiveError は店舗が有効化されていない場合のエラーを生成する。
func NewStoreNotActiveError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreNotActive,
		Message:  "店舗が有効化されていません。",
		Category: "store",
		Action:   "出店審査と有効化の完了後に再度お試しください。",
	}
}

// NewDuplicateStoreError は同一ユーザーによる重複出店申請のエラーを生成する。
func NewDuplicateStoreError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateStore,
		Message:  "既に出店申請済みです。",
		Category: "store",
		Action:   "出店者ダッシュボードから申請状況を確認してください。",
	}
}

// NewInvalidStatusTransitionError は許可されない状態遷移のエラーを生成する。
func NewInvalidStatusTransitionError(from, to StoreStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatusTransition,
		Message:  fmt.Sprintf("店舗状態を %s から %s に変更することはできません。", from, to),
		Category: "store",
		Action:   "現在の店舗状態を確認してください。",
	}
}

// NewProductNotFoundError は商品が見つからない場合のエラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "product",
		Action:   "商品IDを確認してください。",
	}
}

// NewInvalidPriceError は価格が無効な場合のエラーを生成する。
func NewInvalidPriceError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrice,
		Message:  "価格は1円以上の整数で指定してください。",
		Category: "validation",
		Action:   "価格を確認して再度お試しください。",
	}
}

// NewOutOfStockError は在庫不足エラーを生成する。
func NewOutOfStockError(productName string) *APIError {
	return &APIError{
		Code:     ErrCodeOutOfStock,
		Message:  fmt.Sprintf("在庫が不足しています: %s", productName),
		Category: "order",
		Action:   "数量を減らすか、在庫の補充をお待ちください。",
	}
}

// NewInvalidRatingError は評価値が範囲外の場合のエラーを生成する。
func NewInvalidRatingError(rating int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("無効な評価値です: %d", rating),
		Category: "validation",
		Action:   "評価は1から5の整数で指定してください。",
	}
}

// NewDuplicateReviewError は同一商品への重複レビューエラーを生成する。
func NewDuplicateReviewError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateReview,
		Message:  "この商品には既にレビューを投稿済みです。",
		Category: "validation",
		Action:   "投稿済みのレビューを確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewInvalidSortError は無効な並び順エラーを生成する。
func NewInvalidSortError(sort string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("無効な並び順です: %s", sort),
		Category: "validation",
		Action:   "並び順には newest、price_asc、price_desc、rating のいずれかを指定してください。",
	}
}
