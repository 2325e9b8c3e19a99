// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/replix/replix/internal/model"
)

// UserRepository はクレデンシャルレコードの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleの外部IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// UpsertByGoogleID はgoogle_idをキーにユーザーを作成または更新する。
	// 既存レコードの場合はaccess_tokenを上書きし、refresh_tokenは
	// 新しい値が非空の場合のみ上書きする（既存値を消去しない）。
	// 作成・更新は単一のSQL文で行われ、中途半端なレコードは生じない。
	// 確定後のレコードを返す。
	UpsertByGoogleID(ctx context.Context, user *model.User) (*model.User, error)

	// UpdateAccessToken は指定ユーザーのaccess_tokenのみを更新する。
	// 外部APIクライアントがトークンをリフレッシュした際の永続化に使用する。
	UpdateAccessToken(ctx context.Context, id, accessToken string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// ExtendExpiry はセッションの有効期限を延長する（ローリング有効期限）。
	// 存在しないセッションの場合は何もしない。
	ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにならない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
