// Package model はドメインモデルを定義する。
package model

import "time"

// Video はチャンネルの動画サマリーを表す。
// YouTube Data APIのレスポンスから必要なフィールドのみに縮約したもの。
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Thumbnail   string    `json:"thumbnail"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Comment は動画のトップレベルコメントのサマリーを表す。
// Textはサニタイズ済みのHTML。
type Comment struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	AuthorImage string    `json:"authorImage"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"publishedAt"`
	LikeCount   int       `json:"likeCount"`
}

// Sentiment はコメントの感情分類ラベル。
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// CategorizedComment は感情ラベル付きのコメント。
type CategorizedComment struct {
	Comment
	Sentiment Sentiment `json:"sentiment"`
}

// CategorizedComments は感情分類の結果。
// 入力された全コメントがいずれか1つのリストに必ず含まれる。
type CategorizedComments struct {
	Positive []CategorizedComment `json:"positive"`
	Negative []CategorizedComment `json:"negative"`
	Neutral  []CategorizedComment `json:"neutral"`
}

// NewCategorizedComments は空の分類結果を生成する。
// 各リストはnilではなく空スライスで初期化する（JSONで[]と出力するため）。
func NewCategorizedComments() *CategorizedComments {
	return &CategorizedComments{
		Positive: []CategorizedComment{},
		Negative: []CategorizedComment{},
		Neutral:  []CategorizedComment{},
	}
}
