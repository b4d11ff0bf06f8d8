package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn             func(ctx context.Context, email, password, fullName string) (*auth.SignupResult, error)
	loginFn              func(ctx context.Context, email, password string) (*model.Session, string, error)
	logoutFn             func(ctx context.Context, token string) error
	getCurrentIdentityFn func(ctx context.Context, token string) (*model.Identity, error)
}

func (m *mockAuthService) Signup(ctx context.Context, email, password, fullName string) (*auth.SignupResult, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password, fullName)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, "", nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) GetCurrentIdentity(ctx context.Context, token string) (*model.Identity, error) {
	if m.getCurrentIdentityFn != nil {
		return m.getCurrentIdentityFn(ctx, token)
	}
	return nil, nil
}

// withUserID はリクエストコンテキストにユーザーIDを注入するテストヘルパー。
func withUserID(req *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(req.Context(), userID)
	return req.WithContext(ctx)
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- POST /auth/signup テスト ---

func TestAuthHandler_Signup_Success(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, email, password, fullName string) (*auth.SignupResult, error) {
			if email != "new@example.com" {
				t.Errorf("email = %q, want %q", email, "new@example.com")
			}
			return &auth.SignupResult{
				Identity: &model.Identity{ID: "user-new", Email: email},
				Session:  &model.Session{TokenHash: "hash", UserID: "user-new"},
				Token:    "plaintext-token",
			}, nil
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := `{"email":"new@example.com","password":"password123","full_name":"New User"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	cookie := findCookie(t, resp, "session_token")
	if cookie == nil {
		t.Fatal("expected session_token cookie to be set")
	}
	if cookie.Value != "plaintext-token" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "plaintext-token")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	var respBody map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if respBody["id"] != "user-new" {
		t.Errorf("id = %v, want %q", respBody["id"], "user-new")
	}
}

func TestAuthHandler_Signup_InvalidBody_ReturnsBadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{invalid json"))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Signup_EmailTaken_ReturnsConflict(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, email, password, fullName string) (*auth.SignupResult, error) {
			return nil, model.NewEmailTakenError()
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{})

	body := `{"email":"taken@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	var errBody apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&errBody)
	if errBody.Code != model.ErrCodeEmailTaken {
		t.Errorf("error code = %q, want %q", errBody.Code, model.ErrCodeEmailTaken)
	}
}

func TestAuthHandler_Signup_ValidationError_ReturnsBadRequest(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, email, password, fullName string) (*auth.SignupResult, error) {
			return nil, model.NewValidationError("パスワードは8文字以上にしてください")
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{})

	body := `{"email":"a@example.com","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	expiresAt := time.Now().Add(24 * time.Hour)
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, string, error) {
			return &model.Session{
				TokenHash: "hash",
				UserID:    "user-123",
				ExpiresAt: expiresAt,
			}, "login-token", nil
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := `{"email":"user@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cookie := findCookie(t, resp, "session_token")
	if cookie == nil {
		t.Fatal("expected session_token cookie to be set")
	}
	if cookie.Value != "login-token" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "login-token")
	}
}

func TestAuthHandler_Login_InvalidCredentials_ReturnsUnauthorized(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{})

	body := `{"email":"user@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var errBody apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&errBody)
	if errBody.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("error code = %q, want %q", errBody.Code, model.ErrCodeInvalidCredentials)
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	logoutCalled := false
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			logoutCalled = true
			if token != "session-token-value" {
				t.Errorf("token = %q, want %q", token, "session-token-value")
			}
			return nil
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "session-token-value"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !logoutCalled {
		t.Error("expected Logout to be called")
	}

	cookie := findCookie(t, resp, "session_token")
	if cookie == nil {
		t.Fatal("expected session_token cookie to be cleared")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookie.MaxAge)
	}
}

func TestAuthHandler_Logout_NoCookie_StillSucceeds(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

// --- GET /auth/me テスト ---

func TestAuthHandler_Me_Success(t *testing.T) {
	svc := &mockAuthService{
		getCurrentIdentityFn: func(ctx context.Context, token string) (*model.Identity, error) {
			return &model.Identity{
				ID:    "user-me",
				Email: "me@example.com",
			}, nil
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid-token"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var respBody map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if respBody["email"] != "me@example.com" {
		t.Errorf("email = %v, want %q", respBody["email"], "me@example.com")
	}
}

func TestAuthHandler_Me_NoCookie_ReturnsUnauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Me_ExpiredSession_ReturnsUnauthorized(t *testing.T) {
	svc := &mockAuthService{
		getCurrentIdentityFn: func(ctx context.Context, token string) (*model.Identity, error) {
			return nil, model.NewUnauthorizedError()
		},
	}

	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "expired-token"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
