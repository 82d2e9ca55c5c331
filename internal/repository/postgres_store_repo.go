package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// PostgresStoreRepo はPostgreSQLを使用した店舗リポジトリ。
type PostgresStoreRepo struct {
	db *sql.DB
}

// NewPostgresStoreRepo はPostgresStoreRepoを生成する。
func NewPostgresStoreRepo(db *sql.DB) *PostgresStoreRepo {
	return &PostgresStoreRepo{db: db}
}

// storeColumns はSELECT句で使用するカラムリスト。
const storeColumns = `id, user_id, name, description, website_url, pic_email,
	logo_data, logo_mime, status, activation_token, activation_expires, created_at, updated_at`

// scanStore は1行を*model.Storeに読み込む。
func scanStore(row *sql.Row) (*model.Store, error) {
	store := &model.Store{}
	var logoData []byte
	var logoMime sql.NullString
	err := row.Scan(
		&store.ID, &store.UserID, &store.Name, &store.Description,
		&store.WebsiteURL, &store.PICEmail,
		&logoData, &logoMime,
		&store.Status, &store.ActivationToken, &store.ActivationExpires,
		&store.CreatedAt, &store.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	store.LogoData = logoData
	if logoMime.Valid {
		store.LogoMime = logoMime.String
	}
	return store, nil
}

// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
func (r *PostgresStoreRepo) FindByID(ctx context.Context, id string) (*model.Store, error) {
	store, err := scanStore(r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find store by ID: %w", err)
	}
	return store, nil
}

// FindByUserID はオーナーのユーザーIDで店舗を検索する。見つからない場合はnilを返す。
func (r *PostgresStoreRepo) FindByUserID(ctx context.Context, userID string) (*model.Store, error) {
	store, err := scanStore(r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE user_id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find store by user ID: %w", err)
	}
	return store, nil
}

// FindByActivationToken は有効化トークンで店舗を検索する。見つからない場合はnilを返す。
func (r *PostgresStoreRepo) FindByActivationToken(ctx context.Context, token string) (*model.Store, error) {
	store, err := scanStore(r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE activation_token = $1`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find store by activation token: %w", err)
	}
	return store, nil
}

// Create は店舗を作成する。
func (r *PostgresStoreRepo) Create(ctx context.Context, store *model.Store) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stores (id, user_id, name, description, website_url, pic_email,
		 logo_data, logo_mime, status, activation_token, activation_expires, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		store.ID, store.UserID, store.Name, store.Description, store.WebsiteURL, store.PICEmail,
		store.LogoData, nullableString(store.LogoMime),
		store.Status, store.ActivationToken, store.ActivationExpires,
		store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert store: %w", err)
	}
	return nil
}

// UpdateProfile は店舗のプロフィールを更新する。
func (r *PostgresStoreRepo) UpdateProfile(ctx context.Context, store *model.Store) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stores
		 SET name = $1, description = $2, website_url = $3, pic_email = $4, updated_at = now()
		 WHERE id = $5`,
		store.Name, store.Description, store.WebsiteURL, store.PICEmail, store.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update store profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("store not found: %s", store.ID)
	}
	return nil
}

// UpdateStatus は店舗の状態と有効化トークン・期限を単一行のUPDATEで更新する。
// 単一行UPDATEの原子性により、並行する再発行はlast-write-winsとなる。
func (r *PostgresStoreRepo) UpdateStatus(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stores
		 SET status = $1, activation_token = $2, activation_expires = $3, updated_at = now()
		 WHERE id = $4`,
		status, token, expires, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update store status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("store not found: %s", id)
	}
	return nil
}

// UpdateLogo は店舗のロゴ画像データを更新する。
func (r *PostgresStoreRepo) UpdateLogo(ctx context.Context, id string, logoData []byte, logoMime string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE stores SET logo_data = $1, logo_mime = $2, updated_at = now() WHERE id = $3`,
		logoData, nullableString(logoMime), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update store logo: %w", err)
	}
	return nil
}

// ListByStatus は指定状態の店舗一覧をcreated_at昇順で返す。
func (r *PostgresStoreRepo) ListByStatus(ctx context.Context, status model.StoreStatus) ([]*model.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, website_url, pic_email,
		 status, activation_token, activation_expires, created_at, updated_at
		 FROM stores WHERE status = $1 ORDER BY created_at ASC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores by status: %w", err)
	}
	defer rows.Close()

	var stores []*model.Store
	for rows.Next() {
		store := &model.Store{}
		if err := rows.Scan(
			&store.ID, &store.UserID, &store.Name, &store.Description,
			&store.WebsiteURL, &store.PICEmail,
			&store.Status, &store.ActivationToken, &store.ActivationExpires,
			&store.CreatedAt, &store.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan store row: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate store rows: %w", err)
	}
	return stores, nil
}

// CountByStatus は状態ごとの店舗数を返す。
func (r *PostgresStoreRepo) CountByStatus(ctx context.Context) (map[model.StoreStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM stores GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count stores by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.StoreStatus]int)
	for rows.Next() {
		var status model.StoreStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate count rows: %w", err)
	}
	return counts, nil
}

// nullableString は空文字列をNULLとして保存するためのヘルパー。
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ StoreRepository = (*PostgresStoreRepo)(nil)
