package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/replix/replix/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, google_id, email, name, access_token, COALESCE(refresh_token, ''), created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	))
}

// FindByGoogleID はGoogleの外部IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, google_id, email, name, access_token, COALESCE(refresh_token, ''), created_at, updated_at
		 FROM users WHERE google_id = $1`,
		googleID,
	))
}

// UpsertByGoogleID はgoogle_idをキーにユーザーを作成または更新する。
// 単一のINSERT ... ON CONFLICT文で実行するため、作成・更新はアトミック。
// refresh_tokenはNULLIFで空文字をNULLに変換し、COALESCEで既存値を保持する。
// refresh_tokenが一度設定されたら消去されない不変条件はこのSQLが保証する。
func (r *PostgresUserRepo) UpsertByGoogleID(ctx context.Context, user *model.User) (*model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, google_id, email, name, access_token, refresh_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		 ON CONFLICT (google_id) DO UPDATE SET
		     access_token = EXCLUDED.access_token,
		     refresh_token = COALESCE(EXCLUDED.refresh_token, users.refresh_token),
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, google_id, email, name, access_token, COALESCE(refresh_token, ''), created_at, updated_at`,
		user.ID, user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateAccessToken は指定ユーザーのaccess_tokenのみを更新する。
func (r *PostgresUserRepo) UpdateAccessToken(ctx context.Context, id, accessToken string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET access_token = $2, updated_at = now() WHERE id = $1`,
		id, accessToken,
	)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	return nil
}

// scanUser は1行のクエリ結果をmodel.Userにスキャンする。
func (r *PostgresUserRepo) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.Name,
		&user.AccessToken, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
