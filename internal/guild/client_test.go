package guild

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestIsGuildNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "HTTP 404",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}},
			want: true,
		},
		{
			name: "HTTP 403 (bot not in guild)",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}},
			want: true,
		},
		{
			name: "unknown guild error code",
			err: &discordgo.RESTError{
				Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownGuild},
			},
			want: true,
		},
		{
			name: "missing access error code",
			err: &discordgo.RESTError{
				Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess},
			},
			want: true,
		},
		{
			name: "HTTP 500",
			err:  &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusInternalServerError}},
			want: false,
		},
		{
			name: "non-REST error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGuildNotFound(tt.err); got != tt.want {
				t.Errorf("isGuildNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEncodeAvatarDataURI(t *testing.T) {
	got := encodeAvatarDataURI("image/png", []byte("abc"))
	if got != "data:image/png;base64,YWJj" {
		t.Errorf("encodeAvatarDataURI = %q", got)
	}

	// Content-Type未指定時はimage/pngにフォールバック
	got = encodeAvatarDataURI("", []byte("abc"))
	if got != "data:image/png;base64,YWJj" {
		t.Errorf("encodeAvatarDataURI with empty type = %q", got)
	}
}
