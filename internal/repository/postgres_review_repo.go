package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// FindByUserAndProduct はユーザーIDと商品IDでレビューを検索する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByUserAndProduct(ctx context.Context, userID, productID string) (*model.Review, error) {
	review := &model.Review{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, product_id, user_id, rating, comment, created_at
		 FROM reviews WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	).Scan(&review.ID, &review.ProductID, &review.UserID, &review.Rating, &review.Comment, &review.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return review, nil
}

// Create はレビューを作成する。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// ListByProduct は商品のレビュー一覧をcreated_at降順でカーソルベースページネーションで返す。
func (r *PostgresReviewRepo) ListByProduct(ctx context.Context, productID string, cursor time.Time, limit int) ([]*model.Review, error) {
	query := `SELECT id, product_id, user_id, rating, comment, created_at
		 FROM reviews WHERE product_id = $1`
	args := []any{productID}

	if !cursor.IsZero() {
		query += ` AND created_at < $2`
		args = append(args, cursor)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		review := &model.Review{}
		if err := rows.Scan(&review.ID, &review.ProductID, &review.UserID, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review rows: %w", err)
	}
	return reviews, nil
}

// SummaryByProduct は商品の評価集計を返す。
func (r *PostgresReviewRepo) SummaryByProduct(ctx context.Context, productID string) (*model.RatingSummary, error) {
	return r.summarize(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE product_id = $1 GROUP BY rating`,
		productID,
	)
}

// SummaryByStore は店舗の全商品のレビューを横断した評価集計を返す。
// 論理削除済み商品のレビューも集計対象に含める（過去の販売実績の評価であるため）。
func (r *PostgresReviewRepo) SummaryByStore(ctx context.Context, storeID string) (*model.RatingSummary, error) {
	return r.summarize(ctx,
		`SELECT rv.rating, COUNT(*)
		 FROM reviews rv
		 JOIN products p ON p.id = rv.product_id
		 WHERE p.store_id = $1
		 GROUP BY rv.rating`,
		storeID,
	)
}

// summarize は評価値ごとの件数から集計を構築する。
func (r *PostgresReviewRepo) summarize(ctx context.Context, query string, arg any) (*model.RatingSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	defer rows.Close()

	summary := &model.RatingSummary{}
	total := 0
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if rating >= model.RatingMin && rating <= model.RatingMax {
			summary.Distribution[rating-1] = count
			summary.ReviewCount += count
			total += rating * count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary rows: %w", err)
	}

	if summary.ReviewCount > 0 {
		summary.AvgRating = float64(total) / float64(summary.ReviewCount)
	}
	return summary, nil
}

// ListProductStats はレビューが存在する全商品の評価集計を返す。
func (r *PostgresReviewRepo) ListProductStats(ctx context.Context) ([]ProductRatingStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, AVG(rating)::float8, COUNT(*)
		 FROM reviews GROUP BY product_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list product rating stats: %w", err)
	}
	defer rows.Close()

	var stats []ProductRatingStat
	for rows.Next() {
		var stat ProductRatingStat
		if err := rows.Scan(&stat.ProductID, &stat.AvgRating, &stat.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan stat row: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stat rows: %w", err)
	}
	return stats, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
