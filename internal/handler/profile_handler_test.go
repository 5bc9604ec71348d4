package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/guildgate/internal/guild"
	"github.com/hitoshi/guildgate/internal/middleware"
	"github.com/hitoshi/guildgate/internal/model"
)

type mockProfileService struct {
	updateProfileFn func(ctx context.Context, actor *model.User, req guild.ProfileUpdateRequest) (string, error)
	calls           []guild.ProfileUpdateRequest
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, actor *model.User, req guild.ProfileUpdateRequest) (string, error) {
	m.calls = append(m.calls, req)
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, actor, req)
	}
	return "テストサーバー", nil
}

// newProfileRequest はmultipart/form-dataのテストリクエストを組み立てる。
// avatarがnilの場合、ファイルフィールドは含めない。
func newProfileRequest(t *testing.T, guildID, nickname string, avatar []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if guildID != "" {
		if err := mw.WriteField("guildId", guildID); err != nil {
			t.Fatalf("failed to write guildId field: %v", err)
		}
	}
	if nickname != "" {
		if err := mw.WriteField("nickname", nickname); err != nil {
			t.Fatalf("failed to write nickname field: %v", err)
		}
	}
	if avatar != nil {
		fw, err := mw.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("failed to create avatar field: %v", err)
		}
		if _, err := fw.Write(avatar); err != nil {
			t.Fatalf("failed to write avatar data: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/update-profile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func withSession(req *http.Request, user *model.User) *http.Request {
	session := &model.Session{ID: "session-1", User: user}
	return req.WithContext(middleware.ContextWithSession(req.Context(), session))
}

func decodeErrorBody(t *testing.T, body io.Reader) middleware.ErrorResponseBody {
	t.Helper()
	var b middleware.ErrorResponseBody
	if err := json.NewDecoder(body).Decode(&b); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return b
}

const testAvatarMaxSize = 5 << 20

func TestProfileHandler_UpdateProfile_Success(t *testing.T) {
	svc := &mockProfileService{}
	h := NewProfileHandler(svc, testAvatarMaxSize, nil)

	req := newProfileRequest(t, "guild-1", "新しい名前", []byte{0x89, 0x50, 0x4e, 0x47})
	req = withSession(req, &model.User{ID: "owner-1"})
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Success   bool   `json:"success"`
		GuildName string `json:"guildName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.GuildName != "テストサーバー" {
		t.Errorf("guildName = %q", body.GuildName)
	}

	if len(svc.calls) != 1 {
		t.Fatalf("service calls = %d, want 1", len(svc.calls))
	}
	call := svc.calls[0]
	if call.GuildID != "guild-1" || call.Nickname != "新しい名前" {
		t.Errorf("request = %+v", call)
	}
	if len(call.Avatar) != 4 {
		t.Errorf("avatar bytes = %d, want 4", len(call.Avatar))
	}
}

func TestProfileHandler_UpdateProfile_WithoutSession_Returns401(t *testing.T) {
	svc := &mockProfileService{}
	h := NewProfileHandler(svc, testAvatarMaxSize, nil)

	req := newProfileRequest(t, "guild-1", "x", nil)
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if len(svc.calls) != 0 {
		t.Error("service must not be called without a session")
	}
}

func TestProfileHandler_UpdateProfile_AvatarTooLarge(t *testing.T) {
	svc := &mockProfileService{}
	h := NewProfileHandler(svc, 16, nil) // 上限16バイト

	req := newProfileRequest(t, "guild-1", "", bytes.Repeat([]byte{0xab}, 64))
	req = withSession(req, &model.User{ID: "owner-1"})
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body := decodeErrorBody(t, resp.Body); body.Code != model.ErrCodeAvatarTooLarge {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeAvatarTooLarge)
	}
	if len(svc.calls) != 0 {
		t.Error("oversized avatars must be rejected before reaching the service")
	}
}

func TestProfileHandler_UpdateProfile_ServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *model.APIError
		wantStatus int
	}{
		{"missing guild id", model.NewMissingGuildIDError(), http.StatusBadRequest},
		{"no changes", model.NewNoChangesError(), http.StatusBadRequest},
		{"guild not found", model.NewGuildNotFoundError("guild-1"), http.StatusNotFound},
		{"not guild owner", model.NewNotGuildOwnerError(), http.StatusForbidden},
		{"unauthorized", model.NewUnauthorizedError(), http.StatusUnauthorized},
		{"internal", model.NewInternalError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockProfileService{
				updateProfileFn: func(ctx context.Context, actor *model.User, req guild.ProfileUpdateRequest) (string, error) {
					return "", tt.err
				},
			}
			h := NewProfileHandler(svc, testAvatarMaxSize, nil)

			req := newProfileRequest(t, "guild-1", "x", nil)
			req = withSession(req, &model.User{ID: "owner-1"})
			w := httptest.NewRecorder()

			h.UpdateProfile(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body := decodeErrorBody(t, resp.Body); body.Code != tt.err.Code {
				t.Errorf("error code = %q, want %q", body.Code, tt.err.Code)
			}
		})
	}
}

func TestProfileHandler_UpdateProfile_NicknameOnly_NoAvatarField(t *testing.T) {
	svc := &mockProfileService{}
	h := NewProfileHandler(svc, testAvatarMaxSize, nil)

	req := newProfileRequest(t, "guild-1", "名前だけ", nil)
	req = withSession(req, &model.User{ID: "owner-1"})
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Result().StatusCode)
	}
	if svc.calls[0].Avatar != nil {
		t.Error("avatar should be nil when the field is absent")
	}
}
