package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/replix/replix/internal/middleware"
	"github.com/replix/replix/internal/model"
)

// VideoServiceInterface は動画・コメントハンドラーが必要とするサービスインターフェース。
type VideoServiceInterface interface {
	// ListVideos は認証ユーザーのチャンネルの動画一覧を返す。
	ListVideos(ctx context.Context, userID string) ([]model.Video, error)
	// ListComments は動画のトップレベルコメント一覧を返す。
	ListComments(ctx context.Context, userID, videoID string) ([]model.Comment, error)
	// PostComment は動画に新しいトップレベルコメントを投稿する。
	PostComment(ctx context.Context, userID, videoID, text string) (*model.Comment, error)
	// PostReply は既存コメントへの返信を投稿する。
	PostReply(ctx context.Context, userID, commentID, text string) (*model.Comment, error)
}

// VideoHandler は動画・コメント管理のHTTPハンドラー。
type VideoHandler struct {
	service VideoServiceInterface
}

// NewVideoHandler はVideoHandlerを生成する。
func NewVideoHandler(service VideoServiceInterface) *VideoHandler {
	return &VideoHandler{service: service}
}

// postCommentRequest はコメント・返信投稿リクエストのボディ。
type postCommentRequest struct {
	Text string `json:"text"`
}

// ListVideos はチャンネルの動画一覧を返す。
// GET /videos
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	videos, err := h.service.ListVideos(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(videos)
}

// ListComments は動画のコメント一覧を返す。
// GET /videos/{id}/comments
func (h *VideoHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	videoID := chi.URLParam(r, "id")

	comments, err := h.service.ListComments(r.Context(), userID, videoID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

// PostComment は動画に新しいトップレベルコメントを投稿する。
// POST /videos/{id}/comments
func (h *VideoHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	videoID := chi.URLParam(r, "id")

	text, ok := decodeCommentText(w, r)
	if !ok {
		return
	}

	comment, err := h.service.PostComment(r.Context(), userID, videoID, text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(comment)
}

// PostReply は既存コメントへの返信を投稿する。
// POST /videos/{id}/comments/{commentId}/reply
func (h *VideoHandler) PostReply(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	commentID := chi.URLParam(r, "commentId")

	text, ok := decodeCommentText(w, r)
	if !ok {
		return
	}

	comment, err := h.service.PostReply(r.Context(), userID, commentID, text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(comment)
}

// decodeCommentText はリクエストボディからコメント本文を取り出す。
// 本文が欠落または空白のみの場合は400を書き込みfalseを返す。
// 空本文の検証は外部APIを呼び出す前に行う。
func decodeCommentText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return "", false
	}

	if strings.TrimSpace(req.Text) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("コメント本文は必須です。"))
		return "", false
	}

	return req.Text, true
}
