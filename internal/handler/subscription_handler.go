package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/model"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	Subscribe(ctx context.Context, email, userID string, categoryIDs []string) (*model.SubscriptionResult, error)
}

// SubscriptionHandler はメール購読のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

type subscribeRequest struct {
	Email       string   `json:"email"`
	CategoryIDs []string `json:"category_ids"`
}

type subscribeResponse struct {
	Success        bool   `json:"success"`
	Updated        bool   `json:"updated"`
	SubscriptionID string `json:"subscription_id"`
}

// Subscribe はメール購読を登録・更新する。未ログインでも利用できる。
// POST /api/subscriptions
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// ログイン済みの場合は購読をユーザーに紐付ける
	userID, _ := middleware.UserIDFromContext(r.Context())

	result, err := h.service.Subscribe(r.Context(), req.Email, userID, req.CategoryIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Updated {
		status = http.StatusOK
	}
	writeJSON(w, status, subscribeResponse{
		Success:        true,
		Updated:        result.Updated,
		SubscriptionID: result.SubscriptionID,
	})
}
