package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/replix/replix/internal/model"
)

// fallbackReply は生成に失敗した場合に返す固定の返信文。
const fallbackReply = "Thank you for your comment! I appreciate your feedback and perspective. Looking forward to creating more content you'll enjoy! 😊"

const (
	replySystemPrompt = "You are a helpful assistant that generates friendly and professional replies to YouTube comments. Keep the replies concise, relevant, and engaging."

	sentimentSystemPrompt = "You are a sentiment classifier for YouTube comments. Respond with exactly one word: positive, negative, or neutral."
)

// Completer はチャット補完のインターフェース。
// テスト時にモックに差し替え可能。
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// MetricsRecorder はLLM呼び出しのメトリクスを記録する。
type MetricsRecorder interface {
	RecordUpstreamCall(api, operation string, success bool, duration time.Duration)
	RecordAIFallback(operation string)
}

// ServiceConfig はServiceの設定。
type ServiceConfig struct {
	// CallInterval は感情分類バッチ内のAPI呼び出しの最低間隔。
	CallInterval time.Duration
	// BatchTimeout は感情分類バッチ全体の処理時間の上限。
	BatchTimeout time.Duration
}

// Service は返信文生成とコメントの感情分類を提供する。
// 上流の失敗は呼び出し元に伝播させず、安全なデフォルト値に縮退する。
type Service struct {
	client  Completer
	metrics MetricsRecorder
	config  ServiceConfig
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(client Completer, metrics MetricsRecorder, config ServiceConfig, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		metrics: metrics,
		config:  config,
		logger:  logger,
	}
}

// GenerateReply はコメントへの返信文を生成する。
// 生成に失敗した場合は固定の返信文に縮退し、エラーは返さない。
func (s *Service) GenerateReply(ctx context.Context, comment string) (string, error) {
	if strings.TrimSpace(comment) == "" {
		return "", model.NewValidationError("コメント本文は必須です。")
	}

	start := time.Now()
	reply, err := s.client.Complete(ctx, CompletionRequest{
		System:      replySystemPrompt,
		User:        fmt.Sprintf("Please generate a friendly reply to this YouTube comment: %q", comment),
		MaxTokens:   150,
		Temperature: 0.7,
	})
	s.recordCall("generate_reply", err == nil, time.Since(start))

	if err != nil {
		s.logger.Warn("返信文の生成に失敗したためフォールバックを返します",
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordAIFallback("generate_reply")
		}
		return fallbackReply, nil
	}

	return reply, nil
}

// CategorizeComments はコメントを感情別に分類する。
// 空の入力に対してはAPIを呼び出さず空の分類結果を返す。
// 呼び出しは逐次実行され、呼び出し間にCallIntervalの待機を挟む。
// バッチ全体の処理時間はBatchTimeoutで打ち切られ、未処理分はneutralに分類される。
// 個別コメントの分類失敗もneutralに縮退し、バッチ全体は失敗しない。
func (s *Service) CategorizeComments(ctx context.Context, comments []model.Comment) *model.CategorizedComments {
	result := model.NewCategorizedComments()
	if len(comments) == 0 {
		return result
	}

	batchCtx, cancel := context.WithTimeout(ctx, s.config.BatchTimeout)
	defer cancel()

	start := time.Now()
	var callCount int

	for i, comment := range comments {
		sentiment := model.SentimentNeutral

		if batchCtx.Err() != nil {
			// 時間切れ。残りのコメントは呼び出しなしでneutralに分類する
			s.appendComment(result, comment, sentiment)
			continue
		}

		// API呼び出しインターバル（初回は待たない）
		if callCount > 0 {
			select {
			case <-batchCtx.Done():
				s.appendComment(result, comment, sentiment)
				continue
			case <-time.After(s.config.CallInterval):
			}
		}

		callCount++
		sentiment = s.classifySentiment(batchCtx, comment.Text, i)
		s.appendComment(result, comment, sentiment)
	}

	s.logger.Info("コメントの感情分類が完了しました",
		slog.Int("total_comments", len(comments)),
		slog.Int("api_call_count", callCount),
		slog.Int("positive", len(result.Positive)),
		slog.Int("negative", len(result.Negative)),
		slog.Int("neutral", len(result.Neutral)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return result
}

// classifySentiment はコメント1件の感情ラベルを判定する。
// 失敗時や想定外の応答はneutralに縮退する。
func (s *Service) classifySentiment(ctx context.Context, text string, index int) model.Sentiment {
	start := time.Now()
	answer, err := s.client.Complete(ctx, CompletionRequest{
		System:      sentimentSystemPrompt,
		User:        fmt.Sprintf("Classify the sentiment of this YouTube comment: %q", text),
		MaxTokens:   5,
		Temperature: 0,
	})
	s.recordCall("categorize_comment", err == nil, time.Since(start))

	if err != nil {
		s.logger.Warn("コメントの感情分類に失敗したためneutralに分類します",
			slog.Int("comment_index", index),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordAIFallback("categorize_comment")
		}
		return model.SentimentNeutral
	}

	switch strings.ToLower(strings.TrimRight(strings.TrimSpace(answer), ".")) {
	case "positive":
		return model.SentimentPositive
	case "negative":
		return model.SentimentNegative
	case "neutral":
		return model.SentimentNeutral
	default:
		s.logger.Warn("感情分類の応答が想定外のためneutralに分類します",
			slog.Int("comment_index", index),
			slog.String("answer", answer),
		)
		return model.SentimentNeutral
	}
}

// appendComment はコメントを感情ラベルに対応するリストへ追加する。
func (s *Service) appendComment(result *model.CategorizedComments, comment model.Comment, sentiment model.Sentiment) {
	categorized := model.CategorizedComment{Comment: comment, Sentiment: sentiment}
	switch sentiment {
	case model.SentimentPositive:
		result.Positive = append(result.Positive, categorized)
	case model.SentimentNegative:
		result.Negative = append(result.Negative, categorized)
	default:
		result.Neutral = append(result.Neutral, categorized)
	}
}

// recordCall はLLM呼び出しのメトリクスを記録する。
func (s *Service) recordCall(operation string, success bool, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordUpstreamCall("openai", operation, success, duration)
}
