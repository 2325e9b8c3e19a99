// Package youtube はYouTube Data API v3との連携を提供する。
// 保存済みクレデンシャルを添付した外部API呼び出しと、
// 失敗の分類（再認証要求・未検出・上流エラー）を含む。
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// defaultEndpoint はYouTube Data API v3のベースURL。
const defaultEndpoint = "https://www.googleapis.com/youtube/v3"

// Client はYouTube Data API v3のクライアント。
// 認証は呼び出し側が渡すhttp.Client（OAuthトークン付き）に委ねる。
type Client struct {
	logger   *slog.Logger
	endpoint string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		logger:   logger,
		endpoint: defaultEndpoint,
	}
}

// apiError はYouTube APIのエラーレスポンスを表す。
type apiError struct {
	StatusCode int
	Reason     string
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *apiError) Error() string {
	return fmt.Sprintf("youtube api error: status=%d reason=%s message=%s", e.StatusCode, e.Reason, e.Message)
}

// errorBody はGoogle API共通のエラーレスポンスボディ。
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// channelListResponse はchannels.listのレスポンス。
type channelListResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// playlistItemsResponse はplaylistItems.listのレスポンス。
type playlistItemsResponse struct {
	Items []struct {
		Snippet struct {
			Title       string    `json:"title"`
			PublishedAt time.Time `json:"publishedAt"`
			Thumbnails  struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
			ResourceID struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

// commentSnippet はコメント1件のスニペット。
type commentSnippet struct {
	AuthorDisplayName     string    `json:"authorDisplayName"`
	AuthorProfileImageURL string    `json:"authorProfileImageUrl"`
	TextDisplay           string    `json:"textDisplay"`
	LikeCount             int       `json:"likeCount"`
	PublishedAt           time.Time `json:"publishedAt"`
}

// commentThreadsResponse はcommentThreads.listのレスポンス。
type commentThreadsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			TopLevelComment struct {
				Snippet commentSnippet `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

// commentThreadResource はcommentThreads.insertのレスポンス。
type commentThreadResource struct {
	ID      string `json:"id"`
	Snippet struct {
		TopLevelComment struct {
			Snippet commentSnippet `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

// commentResource はcomments.insertのレスポンス。
type commentResource struct {
	ID      string         `json:"id"`
	Snippet commentSnippet `json:"snippet"`
}

// GetUploadsPlaylistID は認証ユーザーのチャンネルからアップロード動画の
// プレイリストIDを取得する。チャンネルが存在しない場合は空文字列を返す。
func (c *Client) GetUploadsPlaylistID(ctx context.Context, hc *http.Client) (string, error) {
	params := url.Values{
		"part": {"contentDetails"},
		"mine": {"true"},
	}

	var resp channelListResponse
	if err := c.get(ctx, hc, "/channels", params, &resp); err != nil {
		return "", err
	}

	if len(resp.Items) == 0 {
		return "", nil
	}

	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// PlaylistVideo はプレイリスト内の動画1件。
type PlaylistVideo struct {
	VideoID     string
	Title       string
	Thumbnail   string
	PublishedAt time.Time
}

// ListPlaylistVideos は指定プレイリストの動画を取得する。
func (c *Client) ListPlaylistVideos(ctx context.Context, hc *http.Client, playlistID string, maxResults int) ([]PlaylistVideo, error) {
	params := url.Values{
		"part":       {"snippet"},
		"playlistId": {playlistID},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
	}

	var resp playlistItemsResponse
	if err := c.get(ctx, hc, "/playlistItems", params, &resp); err != nil {
		return nil, err
	}

	videos := make([]PlaylistVideo, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, PlaylistVideo{
			VideoID:     item.Snippet.ResourceID.VideoID,
			Title:       item.Snippet.Title,
			Thumbnail:   item.Snippet.Thumbnails.Medium.URL,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}

	return videos, nil
}

// ThreadComment はトップレベルコメント1件。
type ThreadComment struct {
	ID          string
	Author      string
	AuthorImage string
	Text        string
	PublishedAt time.Time
	LikeCount   int
}

// ListCommentThreads は動画のトップレベルコメントスレッドを関連度順で取得する。
func (c *Client) ListCommentThreads(ctx context.Context, hc *http.Client, videoID string, maxResults int) ([]ThreadComment, error) {
	params := url.Values{
		"part":       {"snippet"},
		"videoId":    {videoID},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
		"order":      {"relevance"},
	}

	var resp commentThreadsResponse
	if err := c.get(ctx, hc, "/commentThreads", params, &resp); err != nil {
		return nil, err
	}

	comments := make([]ThreadComment, 0, len(resp.Items))
	for _, item := range resp.Items {
		s := item.Snippet.TopLevelComment.Snippet
		comments = append(comments, ThreadComment{
			ID:          item.ID,
			Author:      s.AuthorDisplayName,
			AuthorImage: s.AuthorProfileImageURL,
			Text:        s.TextDisplay,
			PublishedAt: s.PublishedAt,
			LikeCount:   s.LikeCount,
		})
	}

	return comments, nil
}

// InsertCommentThread は動画に新しいトップレベルコメントスレッドを作成する。
func (c *Client) InsertCommentThread(ctx context.Context, hc *http.Client, videoID, text string) (*ThreadComment, error) {
	body := map[string]any{
		"snippet": map[string]any{
			"videoId": videoID,
			"topLevelComment": map[string]any{
				"snippet": map[string]any{
					"textOriginal": text,
				},
			},
		},
	}

	var resp commentThreadResource
	if err := c.post(ctx, hc, "/commentThreads", url.Values{"part": {"snippet"}}, body, &resp); err != nil {
		return nil, err
	}

	s := resp.Snippet.TopLevelComment.Snippet
	return &ThreadComment{
		ID:          resp.ID,
		Author:      s.AuthorDisplayName,
		AuthorImage: s.AuthorProfileImageURL,
		Text:        s.TextDisplay,
		PublishedAt: s.PublishedAt,
		LikeCount:   s.LikeCount,
	}, nil
}

// InsertReply は既存のコメントスレッドに返信を作成する。
func (c *Client) InsertReply(ctx context.Context, hc *http.Client, parentID, text string) (*ThreadComment, error) {
	body := map[string]any{
		"snippet": map[string]any{
			"parentId":     parentID,
			"textOriginal": text,
		},
	}

	var resp commentResource
	if err := c.post(ctx, hc, "/comments", url.Values{"part": {"snippet"}}, body, &resp); err != nil {
		return nil, err
	}

	return &ThreadComment{
		ID:          resp.ID,
		Author:      resp.Snippet.AuthorDisplayName,
		AuthorImage: resp.Snippet.AuthorProfileImageURL,
		Text:        resp.Snippet.TextDisplay,
		PublishedAt: resp.Snippet.PublishedAt,
		LikeCount:   resp.Snippet.LikeCount,
	}, nil
}

// get はGETリクエストを実行しレスポンスJSONをデコードする。
func (c *Client) get(ctx context.Context, hc *http.Client, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(hc, req, out)
}

// post はJSONボディ付きのPOSTリクエストを実行しレスポンスJSONをデコードする。
func (c *Client) post(ctx context.Context, hc *http.Client, path string, params url.Values, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path+"?"+params.Encode(), bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(hc, req, out)
}

// do はHTTPリクエストを実行し、非2xxレスポンスを*apiErrorに変換する。
func (c *Client) do(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
			apiErr.Message = eb.Error.Message
			if len(eb.Error.Errors) > 0 {
				apiErr.Reason = eb.Error.Errors[0].Reason
			}
		}
		c.logger.Warn("youtube api returned error status",
			slog.String("path", req.URL.Path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("reason", apiErr.Reason),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
