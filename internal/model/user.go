// Package model はドメインモデルを定義する。
package model

import "time"

// User はGoogle OAuthで認証したチャンネルオーナーのクレデンシャルレコードを表す。
// GoogleIDとEmailはそれぞれグローバルに一意。
// AccessTokenは作成以降必ず非空。RefreshTokenは一度設定されたら
// 上書きされることはあっても消去されることはない。
type User struct {
	ID           string
	GoogleID     string
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string // プロバイダーが発行した場合のみ設定される
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// ブラウザにはHTTP Only CookieでセッションIDのみを渡す。
// 有効期限は認証済みアクティビティのたびにローリング延長される。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
