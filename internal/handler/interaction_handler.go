package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/model"
)

// maxStateBodyBytes は状態値リクエストボディの上限サイズ。
const maxStateBodyBytes = 32 * 1024

// InteractionServiceInterface はインタラクション状態ハンドラーが必要とする
// サービスインターフェース。
type InteractionServiceInterface interface {
	Get(ctx context.Context, userID, postID string, kind model.InteractionStateKind) (*model.InteractionState, error)
	Put(ctx context.Context, userID, postID string, kind model.InteractionStateKind, value []byte) (*model.InteractionState, error)
}

// InteractionHandler は投票・付箋などのインタラクション状態のHTTPハンドラー。
type InteractionHandler struct {
	service InteractionServiceInterface
}

// NewInteractionHandler はInteractionHandlerを生成する。
func NewInteractionHandler(service InteractionServiceInterface) *InteractionHandler {
	return &InteractionHandler{service: service}
}

type stateResponse struct {
	Kind      string          `json:"kind"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Get は指定(post, kind)の自分の状態を返す。未保存の場合はnull値を返す。
// GET /api/posts/{id}/state/{kind}
func (h *InteractionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	kind := model.InteractionStateKind(chi.URLParam(r, "kind"))
	state, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"), kind)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if state == nil {
		writeJSON(w, http.StatusOK, stateResponse{
			Kind:  string(kind),
			Value: json.RawMessage("null"),
		})
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		Kind:      string(state.Kind),
		Value:     json.RawMessage(state.Value),
		UpdatedAt: state.UpdatedAt,
	})
}

// Put は状態を保存する。ボディはそのままJSON値として保存される。
// PUT /api/posts/{id}/state/{kind}
func (h *InteractionHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStateBodyBytes))
	if err != nil {
		handleServiceError(w, model.NewEmptyContentError())
		return
	}

	kind := model.InteractionStateKind(chi.URLParam(r, "kind"))
	state, err := h.service.Put(r.Context(), userID, chi.URLParam(r, "id"), kind, body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		Kind:      string(state.Kind),
		Value:     json.RawMessage(state.Value),
		UpdatedAt: state.UpdatedAt,
	})
}
