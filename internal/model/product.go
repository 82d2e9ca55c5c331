// Package model はドメインモデルを定義する。
package model

import "time"

// Product は店舗が出品する商品を表す。
// 価格は通貨の最小単位（円）の整数で保持する。
// AvgRatingとReviewCountはワーカーの集計バッチで非正規化される値であり、
// リアルタイムの厳密性は保証しない。
type Product struct {
	ID          string
	StoreID     string
	Name        string
	Description string // サニタイズ済みHTML
	Price       int64
	Stock       int
	AvgRating   float64
	ReviewCount int
	DeletedAt   *time.Time // 論理削除日時。nilは未削除。
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsDeleted は商品が論理削除済みかを返す。
func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

// ProductSort は商品検索の並び順を表す。
type ProductSort string

const (
	// ProductSortNewest は新着順（created_at降順）。
	ProductSortNewest ProductSort = "newest"
	// ProductSortPriceAsc は価格の安い順。
	ProductSortPriceAsc ProductSort = "price_asc"
	// ProductSortPriceDesc は価格の高い順。
	ProductSortPriceDesc ProductSort = "price_desc"
	// ProductSortRating は評価の高い順。
	ProductSortRating ProductSort = "rating"
)

// IsValid は並び順が定義済みのいずれかであるかを検証する。
func (s ProductSort) IsValid() bool {
	switch s {
	case ProductSortNewest, ProductSortPriceAsc, ProductSortPriceDesc, ProductSortRating:
		return true
	default:
		return false
	}
}
