package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/replix/replix/internal/middleware"
	"github.com/replix/replix/internal/model"
)

// --- モック定義 ---

type mockVideoService struct {
	listVideosFunc   func(ctx context.Context, userID string) ([]model.Video, error)
	listCommentsFunc func(ctx context.Context, userID, videoID string) ([]model.Comment, error)
	postCommentFunc  func(ctx context.Context, userID, videoID, text string) (*model.Comment, error)
	postReplyFunc    func(ctx context.Context, userID, commentID, text string) (*model.Comment, error)
}

func (m *mockVideoService) ListVideos(ctx context.Context, userID string) ([]model.Video, error) {
	if m.listVideosFunc != nil {
		return m.listVideosFunc(ctx, userID)
	}
	return []model.Video{}, nil
}

func (m *mockVideoService) ListComments(ctx context.Context, userID, videoID string) ([]model.Comment, error) {
	if m.listCommentsFunc != nil {
		return m.listCommentsFunc(ctx, userID, videoID)
	}
	return []model.Comment{}, nil
}

func (m *mockVideoService) PostComment(ctx context.Context, userID, videoID, text string) (*model.Comment, error) {
	if m.postCommentFunc != nil {
		return m.postCommentFunc(ctx, userID, videoID, text)
	}
	return &model.Comment{ID: "comment-1", Text: text}, nil
}

func (m *mockVideoService) PostReply(ctx context.Context, userID, commentID, text string) (*model.Comment, error) {
	if m.postReplyFunc != nil {
		return m.postReplyFunc(ctx, userID, commentID, text)
	}
	return &model.Comment{ID: "reply-1", Text: text}, nil
}

// インターフェースを満たしているかコンパイル時にチェック
var _ VideoServiceInterface = (*mockVideoService)(nil)

// videoTestRouter はURLパラメータを解決するためchiルーターにハンドラーを載せる。
func videoTestRouter(h *VideoHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/videos", h.ListVideos)
	r.Get("/videos/{id}/comments", h.ListComments)
	r.Post("/videos/{id}/comments", h.PostComment)
	r.Post("/videos/{id}/comments/{commentId}/reply", h.PostReply)
	return r
}

// authedRequest は認証済みユーザーのコンテキストを持つリクエストを生成する。
func authedRequest(method, target, body, userID string) *http.Request {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.ContextWithUserID(req.Context(), userID)
	return req.WithContext(ctx)
}

// decodeErrorResponse はエラーレスポンスのボディを解析する。
func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var errResp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return errResp
}

// --- テスト ---

func TestVideoHandler_ListVideos(t *testing.T) {
	t.Run("動画一覧を返す", func(t *testing.T) {
		service := &mockVideoService{
			listVideosFunc: func(ctx context.Context, userID string) ([]model.Video, error) {
				if userID != "user-1" {
					t.Errorf("userID = %s, want user-1", userID)
				}
				return []model.Video{
					{ID: "video-1", Title: "最初の動画"},
					{ID: "video-2", Title: "次の動画"},
				}, nil
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodGet, "/videos", "", "user-1"))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var videos []model.Video
		if err := json.NewDecoder(w.Body).Decode(&videos); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(videos) != 2 {
			t.Errorf("videos count = %d, want 2", len(videos))
		}
	})

	t.Run("動画がない場合は空配列を返す", func(t *testing.T) {
		router := videoTestRouter(NewVideoHandler(&mockVideoService{}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodGet, "/videos", "", "user-1"))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if body := strings.TrimSpace(w.Body.String()); body != "[]" {
			t.Errorf("body = %s, want []", body)
		}
	})

	t.Run("認証コンテキストがない場合は401を返す", func(t *testing.T) {
		router := videoTestRouter(NewVideoHandler(&mockVideoService{}))

		req := httptest.NewRequest(http.MethodGet, "/videos", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if errResp := decodeErrorResponse(t, w); errResp.Code != model.ErrCodeUnauthenticated {
			t.Errorf("error code = %s, want %s", errResp.Code, model.ErrCodeUnauthenticated)
		}
	})

	t.Run("再認証が必要な場合は401とREAUTH_REQUIREDを返す", func(t *testing.T) {
		service := &mockVideoService{
			listVideosFunc: func(ctx context.Context, userID string) ([]model.Video, error) {
				return nil, model.NewReauthRequiredError()
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodGet, "/videos", "", "user-1"))

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if errResp := decodeErrorResponse(t, w); errResp.Code != model.ErrCodeReauthRequired {
			t.Errorf("error code = %s, want %s", errResp.Code, model.ErrCodeReauthRequired)
		}
	})

	t.Run("外部APIエラーの場合は500を返す", func(t *testing.T) {
		service := &mockVideoService{
			listVideosFunc: func(ctx context.Context, userID string) ([]model.Video, error) {
				return nil, model.NewUpstreamError("YouTube API unavailable")
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodGet, "/videos", "", "user-1"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if errResp := decodeErrorResponse(t, w); errResp.Code != model.ErrCodeUpstream {
			t.Errorf("error code = %s, want %s", errResp.Code, model.ErrCodeUpstream)
		}
	})
}

func TestVideoHandler_ListComments(t *testing.T) {
	t.Run("動画のコメント一覧を返す", func(t *testing.T) {
		service := &mockVideoService{
			listCommentsFunc: func(ctx context.Context, userID, videoID string) ([]model.Comment, error) {
				if videoID != "video-1" {
					t.Errorf("videoID = %s, want video-1", videoID)
				}
				return []model.Comment{{ID: "comment-1", Text: "面白かった"}}, nil
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodGet, "/videos/video-1/comments", "", "user-1"))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var comments []model.Comment
		if err := json.NewDecoder(w.Body).Decode(&comments); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(comments) != 1 {
			t.Errorf("comments count = %d, want 1", len(comments))
		}
	})

	t.Run("動画が存在しない場合は404を返す", func(t *testing.T) {
		service := &mockVideoService{
			listCommentsFunc: func(ctx context.Context, userID, videoID string) ([]model.Comment, error) {
				return nil, model.NewNotFoundError("動画")
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodGet, "/videos/missing/comments", "", "user-1"))

		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestVideoHandler_PostComment(t *testing.T) {
	t.Run("コメントを投稿して201を返す", func(t *testing.T) {
		service := &mockVideoService{
			postCommentFunc: func(ctx context.Context, userID, videoID, text string) (*model.Comment, error) {
				if videoID != "video-1" {
					t.Errorf("videoID = %s, want video-1", videoID)
				}
				if text != "素晴らしい動画でした" {
					t.Errorf("text = %s", text)
				}
				return &model.Comment{ID: "comment-new", Text: text}, nil
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodPost, "/videos/video-1/comments",
			`{"text":"素晴らしい動画でした"}`, "user-1"))

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
		}
		var comment model.Comment
		if err := json.NewDecoder(w.Body).Decode(&comment); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if comment.ID != "comment-new" {
			t.Errorf("comment ID = %s, want comment-new", comment.ID)
		}
	})

	t.Run("本文が空の場合はサービスを呼ばずに400を返す", func(t *testing.T) {
		called := false
		service := &mockVideoService{
			postCommentFunc: func(ctx context.Context, userID, videoID, text string) (*model.Comment, error) {
				called = true
				return nil, nil
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodPost, "/videos/video-1/comments",
			`{"text":"   "}`, "user-1"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if called {
			t.Error("service should not be called for empty text")
		}
		if errResp := decodeErrorResponse(t, w); errResp.Code != model.ErrCodeValidation {
			t.Errorf("error code = %s, want %s", errResp.Code, model.ErrCodeValidation)
		}
	})

	t.Run("不正なJSONボディの場合は400を返す", func(t *testing.T) {
		router := videoTestRouter(NewVideoHandler(&mockVideoService{}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodPost, "/videos/video-1/comments",
			`{invalid`, "user-1"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestVideoHandler_PostReply(t *testing.T) {
	t.Run("返信を投稿して201を返す", func(t *testing.T) {
		service := &mockVideoService{
			postReplyFunc: func(ctx context.Context, userID, commentID, text string) (*model.Comment, error) {
				if commentID != "comment-1" {
					t.Errorf("commentID = %s, want comment-1", commentID)
				}
				return &model.Comment{ID: "reply-new", Text: text}, nil
			},
		}
		router := videoTestRouter(NewVideoHandler(service))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodPost, "/videos/video-1/comments/comment-1/reply",
			`{"text":"ありがとうございます"}`, "user-1"))

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
		}
		var reply model.Comment
		if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if reply.ID != "reply-new" {
			t.Errorf("reply ID = %s, want reply-new", reply.ID)
		}
	})

	t.Run("本文が空の場合は400を返す", func(t *testing.T) {
		router := videoTestRouter(NewVideoHandler(&mockVideoService{}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(http.MethodPost, "/videos/video-1/comments/comment-1/reply",
			`{"text":""}`, "user-1"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}
