// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeReauthRequired  = "REAUTH_REQUIRED"
	ErrCodeUpstream        = "UPSTREAM_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewValidationError は必須フィールド欠落などの入力エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewReauthRequiredError は保存済みクレデンシャルが外部APIに拒否された場合のエラーを生成する。
// クライアントはこのエラーを受けてOAuthフローを再開する。
func NewReauthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeReauthRequired,
		Message:  "Googleの認証情報が無効になっています。",
		Category: "auth",
		Action:   "再度Googleでログインしてください。",
	}
}

// NewUpstreamError は外部APIの失敗（ネットワーク、クォータ等）を生成する。
func NewUpstreamError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstream,
		Message:  fmt.Sprintf("外部APIの呼び出しに失敗しました: %s", detail),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNotFoundError は参照先の動画やコメントが上流に存在しない場合のエラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたリソースが見つかりません: %s", resource),
		Category: "upstream",
		Action:   "IDを確認してください。",
	}
}
