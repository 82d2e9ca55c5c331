// Package model はドメインモデルを定義する。
package model

import "time"

// Order はユーザーの注文を表す。
type Order struct {
	ID        string
	UserID    string
	Total     int64 // 注文合計金額（円）
	CreatedAt time.Time
	Items     []OrderItem
}

// OrderItem は注文の明細行を表す。
// UnitPriceは購入時点の商品価格のスナップショットであり、
// その後の価格変更の影響を受けない。
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	StoreID   string
	Quantity  int
	UnitPrice int64
}

// SalesReportRow は店舗の売上レポートの1行（商品単位の集計）を表す。
type SalesReportRow struct {
	ProductID   string
	ProductName string
	Units       int
	Revenue     int64
}

// PlatformSummary はプラットフォーム全体の集計レポートを表す。
type PlatformSummary struct {
	StoresByStatus map[StoreStatus]int
	ProductCount   int
	OrderCount     int
	TotalRevenue   int64
}
