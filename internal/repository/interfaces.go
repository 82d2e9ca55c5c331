// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateRole はユーザーのロールを更新する。
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// StoreRepository は店舗データの永続化インターフェース。
type StoreRepository interface {
	// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Store, error)

	// FindByUserID はオーナーのユーザーIDで店舗を検索する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Store, error)

	// FindByActivationToken は有効化トークンで店舗を検索する。見つからない場合はnilを返す。
	// 検証は常に現在の行を読むため、トークン再発行時はlast-write-winsとなる。
	FindByActivationToken(ctx context.Context, token string) (*model.Store, error)

	// Create は店舗を作成する。
	Create(ctx context.Context, store *model.Store) error

	// UpdateProfile は店舗のプロフィール（名前・説明・サイトURL・担当者メール）を更新する。
	UpdateProfile(ctx context.Context, store *model.Store) error

	// UpdateStatus は店舗の状態と有効化トークン・期限を単一行のUPDATEで更新する。
	// tokenとexpiresは両方nilか両方non-nilで渡すこと。
	UpdateStatus(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error

	// UpdateLogo は店舗のロゴ画像データを更新する。
	UpdateLogo(ctx context.Context, id string, logoData []byte, logoMime string) error

	// ListByStatus は指定状態の店舗一覧をcreated_at昇順で返す。
	ListByStatus(ctx context.Context, status model.StoreStatus) ([]*model.Store, error)

	// CountByStatus は状態ごとの店舗数を返す。
	CountByStatus(ctx context.Context) (map[model.StoreStatus]int, error)
}

// ProductRepository は商品データの永続化インターフェース。
type ProductRepository interface {
	// FindByID は指定IDの商品を取得する。論理削除済みまたは見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// Update は商品情報（名前・説明・価格・在庫）を更新する。
	Update(ctx context.Context, product *model.Product) error

	// SoftDelete は商品を論理削除する（deleted_atを設定）。
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error

	// ListByStore は店舗の商品一覧をcreated_at降順で返す。
	// includeDeleted=falseの場合は論理削除済みを除外する。
	ListByStore(ctx context.Context, storeID string, includeDeleted bool) ([]*model.Product, error)

	// Search はキーワードで商品を検索する。
	// 有効化済み店舗の未削除商品のみを対象とし、カーソルベースページネーションを使用する。
	// cursorがゼロ値の場合は先頭から取得する。keywordが空の場合は全件を対象とする。
	Search(ctx context.Context, keyword string, sort model.ProductSort, cursor time.Time, limit int) ([]*model.Product, error)

	// CountAll は未削除の商品総数を返す。
	CountAll(ctx context.Context) (int, error)

	// UpdateRatingStats は商品の評価集計（平均評価・レビュー数）を更新する。
	// 集計ワーカーから使用する。
	UpdateRatingStats(ctx context.Context, productID string, avgRating float64, reviewCount int) error

	// PurgeDeletedBefore は指定日時より前に論理削除された商品を物理削除する。
	// 削除件数を返す。
	PurgeDeletedBefore(ctx context.Context, before time.Time) (int64, error)
}

// ReviewRepository はレビューデータの永続化インターフェース。
type ReviewRepository interface {
	// FindByUserAndProduct はユーザーIDと商品IDでレビューを検索する。見つからない場合はnilを返す。
	FindByUserAndProduct(ctx context.Context, userID, productID string) (*model.Review, error)

	// Create はレビューを作成する。
	Create(ctx context.Context, review *model.Review) error

	// ListByProduct は商品のレビュー一覧をcreated_at降順でカーソルベースページネーションで返す。
	// cursorがゼロ値の場合は先頭から取得する。
	ListByProduct(ctx context.Context, productID string, cursor time.Time, limit int) ([]*model.Review, error)

	// SummaryByProduct は商品の評価集計（平均・件数・分布）を返す。
	SummaryByProduct(ctx context.Context, productID string) (*model.RatingSummary, error)

	// SummaryByStore は店舗の全商品のレビューを横断した評価集計を返す。
	SummaryByStore(ctx context.Context, storeID string) (*model.RatingSummary, error)

	// ListProductStats はレビューが存在する全商品の評価集計を返す。
	// 集計ワーカーが商品テーブルへの非正規化に使用する。
	ListProductStats(ctx context.Context) ([]ProductRatingStat, error)
}

// OrderRepository は注文データの永続化インターフェース。
type OrderRepository interface {
	// CreateWithItems は注文と明細を同一トランザクションで作成し、
	// 各商品の在庫を減算する。在庫不足の商品があれば全体をロールバックする。
	CreateWithItems(ctx context.Context, order *model.Order) error

	// SalesByStore は店舗の商品ごとの売上集計を期間指定で返す。
	SalesByStore(ctx context.Context, storeID string, from, to time.Time) ([]model.SalesReportRow, error)

	// PlatformTotals はプラットフォーム全体の注文数と売上総額を返す。
	PlatformTotals(ctx context.Context) (orderCount int, totalRevenue int64, err error)
}

// ProductRatingStat は商品単位の評価集計行。
type ProductRatingStat struct {
	ProductID   string
	AvgRating   float64
	ReviewCount int
}

// ErrInsufficientStock は注文処理中の在庫不足を表すセンチネルエラー。
// CreateWithItemsはerrors.Isで判定できる形でこのエラーをラップして返す。
var ErrInsufficientStock = errors.New("insufficient stock")
