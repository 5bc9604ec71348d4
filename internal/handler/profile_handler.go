package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/guildgate/internal/guild"
	"github.com/hitoshi/guildgate/internal/middleware"
	"github.com/hitoshi/guildgate/internal/model"
)

// ProfileServiceInterface はプロフィール更新ハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	UpdateProfile(ctx context.Context, actor *model.User, req guild.ProfileUpdateRequest) (string, error)
}

// ProfileMetrics はプロフィール更新のメトリクス記録に必要なインターフェース。
type ProfileMetrics interface {
	RecordProfileUpdate(result string)
}

// ProfileHandler はボットプロフィール更新のHTTPハンドラー。
type ProfileHandler struct {
	service       ProfileServiceInterface
	avatarMaxSize int64
	metrics       ProfileMetrics
}

// NewProfileHandler はProfileHandlerを生成する。metricsはnil可。
func NewProfileHandler(service ProfileServiceInterface, avatarMaxSize int64, metrics ProfileMetrics) *ProfileHandler {
	return &ProfileHandler{
		service:       service,
		avatarMaxSize: avatarMaxSize,
		metrics:       metrics,
	}
}

// UpdateProfile はギルド内のボットのニックネームとアバターを更新する。
// POST /api/update-profile（multipart/form-data: guildId, nickname, avatar）
//
// セッションミドルウェアの内側に配置されるため、
// ここに到達した時点でリクエストは認証済み。
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		h.writeError(w, model.NewUnauthorizedError())
		return
	}

	// ボディ全体の上限はアバター上限より少し余裕を持たせる
	r.Body = http.MaxBytesReader(w, r.Body, h.avatarMaxSize+1<<20)
	if err := r.ParseMultipartForm(h.avatarMaxSize); err != nil {
		slog.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		h.writeError(w, model.NewAvatarTooLargeError(h.avatarMaxSize))
		return
	}

	req := guild.ProfileUpdateRequest{
		GuildID:  r.FormValue("guildId"),
		Nickname: r.FormValue("nickname"),
	}

	file, header, err := r.FormFile("avatar")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > h.avatarMaxSize {
			h.writeError(w, model.NewAvatarTooLargeError(h.avatarMaxSize))
			return
		}
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			slog.Error("failed to read avatar file", slog.String("error", readErr.Error()))
			h.writeError(w, model.NewInternalError())
			return
		}
		req.Avatar = data
		req.AvatarType = header.Header.Get("Content-Type")
	case errors.Is(err, http.ErrMissingFile):
		// アバターなしはニックネームのみの更新として扱う
	default:
		slog.Warn("failed to read avatar form field", slog.String("error", err.Error()))
		h.writeError(w, model.NewAvatarTooLargeError(h.avatarMaxSize))
		return
	}

	guildName, err := h.service.UpdateProfile(r.Context(), session.User, req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordProfileUpdate("success")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"guildName": guildName,
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func (h *ProfileHandler) handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected error from profile service", slog.String("error", err.Error()))
		apiErr = model.NewInternalError()
	}
	h.writeError(w, apiErr)
}

func (h *ProfileHandler) writeError(w http.ResponseWriter, apiErr *model.APIError) {
	if h.metrics != nil {
		h.metrics.RecordProfileUpdate(apiErr.Code)
	}
	middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// mapAPIErrorToHTTPStatus はエラーコードをHTTPステータスコードに対応付ける。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeMissingGuildID, model.ErrCodeNoChanges, model.ErrCodeAvatarTooLarge:
		return http.StatusBadRequest
	case model.ErrCodeNotGuildOwner:
		return http.StatusForbidden
	case model.ErrCodeGuildNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
