package handler

import (
	"net/http"

	"github.com/hitoshi/guildgate/internal/middleware"
	"github.com/hitoshi/guildgate/internal/model"
)

// recentLogLimit は/api/userで返す監査ログの最大件数。
const recentLogLimit = 3

// AuditReader は監査ログの参照に必要なインターフェース。
// audit.Logの部分集合として定義する。
type AuditReader interface {
	RecentByActor(actorID string, limit int) []model.AuditEntry
}

// UserHandler はユーザー情報関連のHTTPハンドラー。
type UserHandler struct {
	service AuthServiceInterface
	audit   AuditReader
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service AuthServiceInterface, audit AuditReader) *UserHandler {
	return &UserHandler{
		service: service,
		audit:   audit,
	}
}

// Me は現在のログインユーザー情報と直近の操作履歴を返す。
// GET /api/user
//
// 未認証は正常系として扱い、{"user": null} を200で返す。
// 401を返すのは認証必須の操作だけ。
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName())
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	user := h.service.GetCurrentUser(cookie.Value)
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	logs := h.audit.RecentByActor(user.ID, recentLogLimit)

	writeJSON(w, http.StatusOK, map[string]any{
		"user": user,
		"logs": logs,
	})
}
