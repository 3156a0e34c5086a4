package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	authService "github.com/zhouzirui/twinchat/backend/internal/service/auth"
)

func newRouter(t *testing.T, hash string) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	New(authService.NewGate(hash, zerolog.Nop(), nil), zerolog.Nop()).RegisterRoutes(r)
	return r
}

func validate(r http.Handler, body string) (int, Response) {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/validate-password", strings.NewReader(body)))
	var resp Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec.Code, resp
}

func TestValidatePassword(t *testing.T) {
	hash, err := authService.HashPassword("letmein", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword err: %v", err)
	}
	r := newRouter(t, hash)

	cases := []struct {
		name   string
		body   string
		status int
		want   Response
	}{
		{"correct", `{"password":"letmein"}`, http.StatusOK, Response{Valid: true, Message: MsgAccessGranted}},
		{"wrong", `{"password":"nope"}`, http.StatusOK, Response{Valid: false, Message: MsgInvalidPassword}},
		{"missing", `{}`, http.StatusBadRequest, Response{Valid: false, Message: MsgPasswordRequired}},
		{"malformed", `{"password":`, http.StatusBadRequest, Response{Valid: false, Message: MsgPasswordRequired}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := validate(r, tc.body)
			if status != tc.status || resp != tc.want {
				t.Fatalf("got %d %+v, want %d %+v", status, resp, tc.status, tc.want)
			}
		})
	}
}

func TestValidatePasswordNotConfigured(t *testing.T) {
	status, resp := validate(newRouter(t, ""), `{"password":"anything"}`)
	if status != http.StatusInternalServerError || resp.Message != MsgNotConfigured || resp.Valid {
		t.Fatalf("unexpected response %d %+v", status, resp)
	}
}

func TestValidatePasswordBrokenHash(t *testing.T) {
	status, resp := validate(newRouter(t, "$2a$10$short"), `{"password":"anything"}`)
	if status != http.StatusInternalServerError || resp.Message != MsgValidationFailed {
		t.Fatalf("unexpected response %d %+v", status, resp)
	}
}
