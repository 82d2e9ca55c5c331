package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// CreateWithItems は注文と明細を同一トランザクションで作成し、各商品の在庫を減算する。
// 在庫減算は `stock >= quantity` を条件とする単一UPDATEで行い、
// 条件を満たさない商品があればErrInsufficientStockで全体をロールバックする。
func (r *PostgresOrderRepo) CreateWithItems(ctx context.Context, order *model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 注文ヘッダを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total, created_at) VALUES ($1, $2, $3, $4)`,
		order.ID, order.UserID, order.Total, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		// 在庫減算: 在庫が足りる場合のみ行が更新される
		result, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $1, updated_at = now()
			 WHERE id = $2 AND deleted_at IS NULL AND stock >= $1`,
			item.Quantity, item.ProductID,
		)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("product %s: %w", item.ProductID, ErrInsufficientStock)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, store_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.OrderID, item.ProductID, item.StoreID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SalesByStore は店舗の商品ごとの売上集計を期間指定で返す。
// 論理削除済み商品も過去の売上として集計に含める。
func (r *PostgresOrderRepo) SalesByStore(ctx context.Context, storeID string, from, to time.Time) ([]model.SalesReportRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.product_id, p.name,
		        COALESCE(SUM(oi.quantity), 0),
		        COALESCE(SUM(oi.quantity * oi.unit_price), 0)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.store_id = $1 AND o.created_at >= $2 AND o.created_at < $3
		 GROUP BY oi.product_id, p.name
		 ORDER BY SUM(oi.quantity * oi.unit_price) DESC`,
		storeID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by store: %w", err)
	}
	defer rows.Close()

	var report []model.SalesReportRow
	for rows.Next() {
		var row model.SalesReportRow
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.Units, &row.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan sales row: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales rows: %w", err)
	}
	return report, nil
}

// PlatformTotals はプラットフォーム全体の注文数と売上総額を返す。
func (r *PostgresOrderRepo) PlatformTotals(ctx context.Context) (int, int64, error) {
	var orderCount int
	var totalRevenue sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders`,
	).Scan(&orderCount, &totalRevenue)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query platform totals: %w", err)
	}
	return orderCount, totalRevenue.Int64, nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
