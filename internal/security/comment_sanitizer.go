// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CommentSanitizerService はYouTubeコメントのHTML（textDisplay）をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// CommentSanitizerService はコメントHTMLのサニタイズ機能のインターフェースを定義する。
// 上流APIから取得したコメント本文をクライアントに返す前に使用される。
type CommentSanitizerService interface {
	// Sanitize はコメントHTMLをサニタイズして安全なHTMLを返す。
	// YouTubeのtextDisplayに現れる装飾タグ（b, i, em, strong, br, a）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグのhrefはhttp/httpsスキームのみ許可され、
	// target="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// commentSanitizer はCommentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type commentSanitizer struct {
	policy *bluemonday.Policy
}

// NewCommentSanitizer はCommentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: b, i, em, strong, br, a
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: href属性のみ許可（http/https）、target="_blank" と
//     rel="noreferrer noopener" を自動付与
func NewCommentSanitizer() *commentSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	p.AllowElements("b", "i", "em", "strong", "br")

	// aタグの設定:
	// - href属性を許可（http/httpsスキームのみ）
	// - target="_blank"を全リンクに強制付与
	// - rel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &commentSanitizer{
		policy: p,
	}
}

// Sanitize はコメントHTMLをサニタイズして安全なHTMLを返す。
func (s *commentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
