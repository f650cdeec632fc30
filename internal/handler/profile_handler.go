package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/profile"
)

// maxAvatarUploadBytes はアバターアップロードのmultipart全体の上限。
const maxAvatarUploadBytes = 4 << 20

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Update(ctx context.Context, userID string, input profile.UpdateInput) (*model.Profile, error)
	UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64, contentType string) (*model.Profile, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// ProfileHandler はプロフィール関連のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	Website  string `json:"website"`
}

// Get は自分のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOwnProfileResponse(p))
}

// Update は自分のプロフィールを更新する。
// PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, profile.UpdateInput{
		FullName: req.FullName,
		Bio:      req.Bio,
		Website:  req.Website,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOwnProfileResponse(p))
}

// UploadAvatar はアバター画像をアップロードする。
// POST /api/profile/avatar （multipart/form-data、フィールド名 "avatar"）
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarUploadBytes)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		handleServiceError(w, model.NewUploadFailedError("avatarフィールドが必要です"))
		return
	}
	defer file.Close()

	p, err := h.service.UploadAvatar(r.Context(), userID, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOwnProfileResponse(p))
}

// DeleteAccount は退会処理を行い、セッションCookieを無効化する。
// DELETE /api/users/me
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
