package handler

import (
	"context"

	"github.com/replix/replix/internal/model"
	"github.com/replix/replix/internal/repository"
	"github.com/replix/replix/internal/youtube"
)

// YouTubeServiceAdapter は youtube.Service を VideoServiceInterface に適合させるアダプタ。
// セッションから得たユーザーIDを保存済みクレデンシャル付きのユーザーに解決してから
// ゲートウェイを呼び出す。
type YouTubeServiceAdapter struct {
	users   repository.UserRepository
	gateway *youtube.Service
}

// NewYouTubeServiceAdapter はYouTubeServiceAdapterを生成する。
func NewYouTubeServiceAdapter(users repository.UserRepository, gateway *youtube.Service) *YouTubeServiceAdapter {
	return &YouTubeServiceAdapter{users: users, gateway: gateway}
}

// resolveUser はユーザーIDから保存済みクレデンシャル付きのユーザーを取得する。
func (a *YouTubeServiceAdapter) resolveUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return user, nil
}

// ListVideos は認証ユーザーのチャンネルの動画一覧を返す。
func (a *YouTubeServiceAdapter) ListVideos(ctx context.Context, userID string) ([]model.Video, error) {
	user, err := a.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.gateway.ListChannelVideos(ctx, user)
}

// ListComments は動画のトップレベルコメント一覧を返す。
func (a *YouTubeServiceAdapter) ListComments(ctx context.Context, userID, videoID string) ([]model.Comment, error) {
	user, err := a.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.gateway.ListComments(ctx, user, videoID)
}

// PostComment は動画に新しいトップレベルコメントを投稿する。
func (a *YouTubeServiceAdapter) PostComment(ctx context.Context, userID, videoID, text string) (*model.Comment, error) {
	user, err := a.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.gateway.PostComment(ctx, user, videoID, text)
}

// PostReply は既存コメントへの返信を投稿する。
func (a *YouTubeServiceAdapter) PostReply(ctx context.Context, userID, commentID, text string) (*model.Comment, error) {
	user, err := a.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.gateway.PostReply(ctx, user, commentID, text)
}

// --- compile-time interface checks ---

var _ VideoServiceInterface = (*YouTubeServiceAdapter)(nil)
