package youtube

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"

	"github.com/replix/replix/internal/model"
	"github.com/replix/replix/internal/repository"
	"github.com/replix/replix/internal/security"
)

// MetricsRecorder は外部API呼び出しのメトリクスを記録する。
type MetricsRecorder interface {
	RecordUpstreamCall(api, operation string, success bool, duration time.Duration)
	RecordTokenRefresh(success bool)
}

// ServiceConfig はServiceの設定。
type ServiceConfig struct {
	// MaxResults は一覧取得の最大件数。
	MaxResults int
	// Timeout は1回のAPI呼び出しのタイムアウト。0の場合は無制限。
	Timeout time.Duration
}

// Service はYouTube Data APIへのゲートウェイ。
// ユーザーごとの保存済みトークンで認証し、アクセストークン失効時は
// リフレッシュトークンによる再発行と永続化を透過的に行う。
type Service struct {
	client      *Client
	oauthConfig *oauth2.Config
	userRepo    repository.UserRepository
	sanitizer   security.CommentSanitizerService
	metrics     MetricsRecorder
	config      ServiceConfig
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(
	client *Client,
	oauthConfig *oauth2.Config,
	userRepo repository.UserRepository,
	sanitizer security.CommentSanitizerService,
	metrics MetricsRecorder,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		client:      client,
		oauthConfig: oauthConfig,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
		config:      config,
		logger:      logger,
	}
}

// ListChannelVideos は認証ユーザーのチャンネルの最新動画を新しい順で返す。
// チャンネルが存在しない場合はNOT_FOUNDを返す。
// アップロード動画が0件の場合は空スライスを返す。
func (s *Service) ListChannelVideos(ctx context.Context, user *model.User) ([]model.Video, error) {
	var videos []model.Video

	err := s.withAuth(ctx, user, "list_videos", func(hc *http.Client) error {
		playlistID, err := s.client.GetUploadsPlaylistID(ctx, hc)
		if err != nil {
			return err
		}
		if playlistID == "" {
			return model.NewNotFoundError("チャンネル")
		}

		items, err := s.client.ListPlaylistVideos(ctx, hc, playlistID, s.config.MaxResults)
		if err != nil {
			return err
		}

		videos = make([]model.Video, 0, len(items))
		for _, item := range items {
			videos = append(videos, model.Video{
				ID:          item.VideoID,
				Title:       item.Title,
				Thumbnail:   item.Thumbnail,
				PublishedAt: item.PublishedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// アップロードプレイリストは概ね新着順だがAPIは順序を保証しないため明示的に揃える
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})

	return videos, nil
}

// ListComments は動画のトップレベルコメントを関連度順で返す。
// コメント本文はサニタイズ済みのHTML。動画が存在しない場合はNOT_FOUNDを返す。
func (s *Service) ListComments(ctx context.Context, user *model.User, videoID string) ([]model.Comment, error) {
	var comments []model.Comment

	err := s.withAuth(ctx, user, "list_comments", func(hc *http.Client) error {
		items, err := s.client.ListCommentThreads(ctx, hc, videoID, s.config.MaxResults)
		if err != nil {
			return err
		}

		comments = make([]model.Comment, 0, len(items))
		for _, item := range items {
			comments = append(comments, s.toComment(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return comments, nil
}

// PostComment は動画に新しいトップレベルコメントを投稿し、作成されたコメントを返す。
func (s *Service) PostComment(ctx context.Context, user *model.User, videoID, text string) (*model.Comment, error) {
	var posted *model.Comment

	err := s.withAuth(ctx, user, "post_comment", func(hc *http.Client) error {
		item, err := s.client.InsertCommentThread(ctx, hc, videoID, text)
		if err != nil {
			return err
		}
		c := s.toComment(*item)
		posted = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return posted, nil
}

// PostReply は既存コメントへの返信を投稿し、作成されたコメントを返す。
func (s *Service) PostReply(ctx context.Context, user *model.User, parentCommentID, text string) (*model.Comment, error) {
	var posted *model.Comment

	err := s.withAuth(ctx, user, "post_reply", func(hc *http.Client) error {
		item, err := s.client.InsertReply(ctx, hc, parentCommentID, text)
		if err != nil {
			return err
		}
		c := s.toComment(*item)
		posted = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return posted, nil
}

// toComment はAPIレスポンスをドメインモデルに変換し本文をサニタイズする。
func (s *Service) toComment(item ThreadComment) model.Comment {
	return model.Comment{
		ID:          item.ID,
		Author:      item.Author,
		AuthorImage: item.AuthorImage,
		Text:        s.sanitizer.Sanitize(item.Text),
		PublishedAt: item.PublishedAt,
		LikeCount:   item.LikeCount,
	}
}

// withAuth は保存済みアクセストークンでcallを実行する。
// 認証エラー時はリフレッシュトークンで再発行して1回だけ再試行し、
// 新しいアクセストークンを永続化する。再発行できない場合はREAUTH_REQUIREDを返す。
func (s *Service) withAuth(ctx context.Context, user *model.User, operation string, call func(hc *http.Client) error) error {
	hc := s.httpClient(ctx, &oauth2.Token{AccessToken: user.AccessToken})

	start := time.Now()
	err := call(hc)
	s.recordCall(operation, err == nil, time.Since(start))
	if err == nil {
		return nil
	}

	if !isAuthError(err) {
		return s.classify(err)
	}

	if user.RefreshToken == "" {
		s.logger.Warn("access token rejected and no refresh token stored",
			slog.String("user_id", user.ID),
			slog.String("operation", operation),
		)
		return model.NewReauthRequiredError()
	}

	token, err := s.refreshToken(ctx, user)
	if err != nil {
		return model.NewReauthRequiredError()
	}

	hc = s.httpClient(ctx, token)
	start = time.Now()
	err = call(hc)
	s.recordCall(operation, err == nil, time.Since(start))
	if err == nil {
		return nil
	}
	if isAuthError(err) {
		return model.NewReauthRequiredError()
	}
	return s.classify(err)
}

// refreshToken はリフレッシュトークンで新しいアクセストークンを取得し永続化する。
func (s *Service) refreshToken(ctx context.Context, user *model.User) (*oauth2.Token, error) {
	source := s.oauthConfig.TokenSource(s.requestContext(ctx), &oauth2.Token{RefreshToken: user.RefreshToken})

	token, err := source.Token()
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordTokenRefresh(false)
		}
		s.logger.Warn("failed to refresh access token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordTokenRefresh(true)
	}

	// 永続化失敗は次回の呼び出しで再度リフレッシュされるだけなので処理は継続する
	if err := s.userRepo.UpdateAccessToken(ctx, user.ID, token.AccessToken); err != nil {
		s.logger.Error("failed to persist refreshed access token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	user.AccessToken = token.AccessToken

	return token, nil
}

// httpClient は固定トークンを添付するhttp.Clientを生成する。
func (s *Service) httpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return oauth2.NewClient(s.requestContext(ctx), oauth2.StaticTokenSource(token))
}

// requestContext はベースのhttp.Clientにタイムアウトを設定したコンテキストを返す。
func (s *Service) requestContext(ctx context.Context) context.Context {
	if s.config.Timeout <= 0 {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: s.config.Timeout})
}

// recordCall は外部API呼び出しのメトリクスを記録する。
func (s *Service) recordCall(operation string, success bool, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordUpstreamCall("youtube", operation, success, duration)
}

// isAuthError はアクセストークンの失効・無効を示すエラーか判定する。
func isAuthError(err error) bool {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized
}

// classify は外部APIのエラーをアプリケーションのエラー型に変換する。
func (s *Service) classify(err error) error {
	var appErr *model.APIError
	if errors.As(err, &appErr) {
		return err
	}

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return model.NewNotFoundError("リソース")
		default:
			return model.NewUpstreamError(apiErr.Message)
		}
	}

	return model.NewUpstreamError(err.Error())
}
