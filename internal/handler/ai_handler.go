package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/replix/replix/internal/model"
)

// AIServiceInterface はAIハンドラーが必要とするサービスインターフェース。
type AIServiceInterface interface {
	// GenerateReply はコメントへの返信文を生成する。
	GenerateReply(ctx context.Context, comment string) (string, error)
	// CategorizeComments はコメントを感情別に分類する。
	CategorizeComments(ctx context.Context, comments []model.Comment) *model.CategorizedComments
}

// AIHandler はAI返信生成・感情分類のHTTPハンドラー。
type AIHandler struct {
	service AIServiceInterface
}

// NewAIHandler はAIHandlerを生成する。
func NewAIHandler(service AIServiceInterface) *AIHandler {
	return &AIHandler{service: service}
}

// generateReplyRequest は返信生成リクエストのボディ。
type generateReplyRequest struct {
	Comment string `json:"comment"`
}

// generateReplyResponse は返信生成レスポンス。
type generateReplyResponse struct {
	Reply string `json:"reply"`
}

// categorizeCommentsRequest は感情分類リクエストのボディ。
type categorizeCommentsRequest struct {
	Comments []model.Comment `json:"comments"`
}

// GenerateReply はコメントへの返信文を生成する。
// POST /ai/generate-reply
func (h *AIHandler) GenerateReply(w http.ResponseWriter, r *http.Request) {
	var req generateReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if strings.TrimSpace(req.Comment) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("コメント本文は必須です。"))
		return
	}

	reply, err := h.service.GenerateReply(r.Context(), req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(generateReplyResponse{Reply: reply})
}

// CategorizeComments はコメントを感情別に分類する。
// POST /ai/categorize-comments
// 空の入力に対しては外部APIを呼び出さず空の分類結果を返す。
func (h *AIHandler) CategorizeComments(w http.ResponseWriter, r *http.Request) {
	var req categorizeCommentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result := h.service.CategorizeComments(r.Context(), req.Comments)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
