// Package model はドメインモデルを定義する。
package model

import "time"

// 評価値の範囲。
const (
	RatingMin = 1
	RatingMax = 5
)

// Review は商品に対するユーザーレビューを表す。
// 同一ユーザーは同一商品に1件のみ投稿できる（DBのUNIQUE制約で保証）。
type Review struct {
	ID        string
	ProductID string
	UserID    string
	Rating    int    // 1〜5
	Comment   string // サニタイズ済みHTML
	CreatedAt time.Time
}

// IsValidRating は評価値が範囲内かを検証する。
func IsValidRating(rating int) bool {
	return rating >= RatingMin && rating <= RatingMax
}

// RatingSummary は商品または店舗の評価集計を表す。
type RatingSummary struct {
	AvgRating    float64
	ReviewCount  int
	Distribution [5]int // インデックス0が評価1、インデックス4が評価5の件数
}
