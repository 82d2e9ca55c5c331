package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// productColumns はSELECT句で使用するカラムリスト。
const productColumns = `id, store_id, name, description, price, stock,
	avg_rating, review_count, deleted_at, created_at, updated_at`

// scanProduct は現在の行を*model.Productに読み込む。
func scanProduct(scan func(dest ...any) error) (*model.Product, error) {
	p := &model.Product{}
	err := scan(
		&p.ID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.AvgRating, &p.ReviewCount, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの商品を取得する。論理削除済みまたは見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted_at IS NULL`, id)
	p, err := scanProduct(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return p, nil
}

// Create は商品を作成する。
func (r *PostgresProductRepo) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, store_id, name, description, price, stock,
		 avg_rating, review_count, deleted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		product.ID, product.StoreID, product.Name, product.Description,
		product.Price, product.Stock, product.AvgRating, product.ReviewCount,
		product.DeletedAt, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Update は商品情報を更新する。
func (r *PostgresProductRepo) Update(ctx context.Context, product *model.Product) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, stock = $4, updated_at = now()
		 WHERE id = $5 AND deleted_at IS NULL`,
		product.Name, product.Description, product.Price, product.Stock, product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product not found: %s", product.ID)
	}
	return nil
}

// SoftDelete は商品を論理削除する。
func (r *PostgresProductRepo) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET deleted_at = $1, updated_at = now()
		 WHERE id = $2 AND deleted_at IS NULL`,
		deletedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product not found: %s", id)
	}
	return nil
}

// ListByStore は店舗の商品一覧をcreated_at降順で返す。
func (r *PostgresProductRepo) ListByStore(ctx context.Context, storeID string, includeDeleted bool) ([]*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE store_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by store: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Search はキーワードで商品を検索する。
// 有効化済み店舗の未削除商品のみを対象とする。
// created_atカーソルによるページネーションを行うため、並び順はsortに関わらず
// created_at降順をセカンダリキーとして安定化する。
func (r *PostgresProductRepo) Search(ctx context.Context, keyword string, sort model.ProductSort, cursor time.Time, limit int) ([]*model.Product, error) {
	query := `SELECT p.id, p.store_id, p.name, p.description, p.price, p.stock,
		 p.avg_rating, p.review_count, p.deleted_at, p.created_at, p.updated_at
		 FROM products p
		 JOIN stores s ON s.id = p.store_id
		 WHERE p.deleted_at IS NULL AND s.status = 'active'`
	args := []any{}
	argPos := 1

	if keyword != "" {
		query += fmt.Sprintf(` AND (p.name ILIKE $%d OR p.description ILIKE $%d)`, argPos, argPos)
		args = append(args, "%"+keyword+"%")
		argPos++
	}

	if !cursor.IsZero() {
		query += fmt.Sprintf(` AND p.created_at < $%d`, argPos)
		args = append(args, cursor)
		argPos++
	}

	switch sort {
	case model.ProductSortPriceAsc:
		query += ` ORDER BY p.price ASC, p.created_at DESC`
	case model.ProductSortPriceDesc:
		query += ` ORDER BY p.price DESC, p.created_at DESC`
	case model.ProductSortRating:
		query += ` ORDER BY p.avg_rating DESC, p.created_at DESC`
	default:
		query += ` ORDER BY p.created_at DESC`
	}

	query += fmt.Sprintf(` LIMIT $%d`, argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// CountAll は未削除の商品総数を返す。
func (r *PostgresProductRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// UpdateRatingStats は商品の評価集計を更新する。
func (r *PostgresProductRepo) UpdateRatingStats(ctx context.Context, productID string, avgRating float64, reviewCount int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET avg_rating = $1, review_count = $2, updated_at = now()
		 WHERE id = $3`,
		avgRating, reviewCount, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating stats: %w", err)
	}
	return nil
}

// PurgeDeletedBefore は指定日時より前に論理削除された商品を物理削除する。
// 関連するレビューはCASCADE削除される。
func (r *PostgresProductRepo) PurgeDeletedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM products WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted products: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// collectProducts は結果セットを走査して商品スライスを構築する。
func collectProducts(rows *sql.Rows) ([]*model.Product, error) {
	var products []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product rows: %w", err)
	}
	return products, nil
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
