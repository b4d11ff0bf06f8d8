package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/profile"
)

// --- モック定義 ---

// mockProfileService はProfileServiceInterfaceのモック実装。
type mockProfileService struct {
	getFn    func(ctx context.Context, userID string) (*model.Profile, error)
	updateFn func(ctx context.Context, userID string, params profile.UpdateParams) (*model.Profile, error)
	repairFn func(ctx context.Context, userID, email, fullName string) error
}

func (m *mockProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockProfileService) Update(ctx context.Context, userID string, params profile.UpdateParams) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, params)
	}
	return nil, nil
}

func (m *mockProfileService) Repair(ctx context.Context, userID, email, fullName string) error {
	if m.repairFn != nil {
		return m.repairFn(ctx, userID, email, fullName)
	}
	return nil
}

// --- GET /api/profile テスト ---

func TestProfileHandler_GetProfile_Success(t *testing.T) {
	svc := &mockProfileService{
		getFn: func(ctx context.Context, userID string) (*model.Profile, error) {
			return &model.Profile{
				ID:       userID,
				Email:    "user@example.com",
				FullName: "Taro Yamada",
			}, nil
		},
	}

	h := NewProfileHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["email"] != "user@example.com" {
		t.Errorf("email = %v, want %q", body["email"], "user@example.com")
	}
	// preferences未設定でもnullではなく空オブジェクトを返すこと
	if _, ok := body["preferences"].(map[string]interface{}); !ok {
		t.Errorf("preferences = %v, want empty object", body["preferences"])
	}
}

func TestProfileHandler_GetProfile_NotFound(t *testing.T) {
	svc := &mockProfileService{
		getFn: func(ctx context.Context, userID string) (*model.Profile, error) {
			return nil, model.NewProfileNotFoundError()
		},
	}

	h := NewProfileHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req = withUserID(req, "user-missing")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var errBody apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&errBody)
	if errBody.Code != model.ErrCodeProfileNotFound {
		t.Errorf("error code = %q, want %q", errBody.Code, model.ErrCodeProfileNotFound)
	}
}

func TestProfileHandler_GetProfile_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// --- PUT /api/profile テスト ---

func TestProfileHandler_UpdateProfile_Success(t *testing.T) {
	svc := &mockProfileService{
		updateFn: func(ctx context.Context, userID string, params profile.UpdateParams) (*model.Profile, error) {
			if params.FullName == nil || *params.FullName != "New Name" {
				t.Errorf("FullName = %v, want %q", params.FullName, "New Name")
			}
			return &model.Profile{
				ID:       userID,
				Email:    "user@example.com",
				FullName: *params.FullName,
			}, nil
		},
	}

	h := NewProfileHandler(svc)

	body := `{"full_name":"New Name"}`
	req := httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestProfileHandler_UpdateProfile_InvalidBody_ReturnsBadRequest(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader("{invalid"))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestProfileHandler_UpdateProfile_ValidationError(t *testing.T) {
	svc := &mockProfileService{
		updateFn: func(ctx context.Context, userID string, params profile.UpdateParams) (*model.Profile, error) {
			return nil, model.NewValidationError("表示名が長すぎます")
		},
	}

	h := NewProfileHandler(svc)

	body := `{"full_name":"x"}`
	req := httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// --- POST /api/profile/repair テスト ---

func TestProfileHandler_RepairProfile_Success(t *testing.T) {
	repairCalled := false
	svc := &mockProfileService{
		repairFn: func(ctx context.Context, userID, email, fullName string) error {
			repairCalled = true
			if email != "repair@example.com" {
				t.Errorf("email = %q, want %q", email, "repair@example.com")
			}
			return nil
		},
	}

	h := NewProfileHandler(svc)

	body := `{"email":"repair@example.com","full_name":"Repaired"}`
	req := httptest.NewRequest(http.MethodPost, "/api/profile/repair", strings.NewReader(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RepairProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !repairCalled {
		t.Error("expected Repair to be called")
	}
}

func TestProfileHandler_RepairProfile_EmptyBody_StillSucceeds(t *testing.T) {
	svc := &mockProfileService{
		repairFn: func(ctx context.Context, userID, email, fullName string) error {
			return nil
		},
	}

	h := NewProfileHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/profile/repair", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.RepairProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

// 修復は冪等のため、2回呼んでも同じ結果になることを確認する。
func TestProfileHandler_RepairProfile_Idempotent(t *testing.T) {
	callCount := 0
	svc := &mockProfileService{
		repairFn: func(ctx context.Context, userID, email, fullName string) error {
			callCount++
			return nil
		},
	}

	h := NewProfileHandler(svc)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/profile/repair", nil)
		req = withUserID(req, "user-123")
		w := httptest.NewRecorder()

		h.RepairProfile(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("call %d: status = %d, want %d", i+1, resp.StatusCode, http.StatusNoContent)
		}
	}

	if callCount != 2 {
		t.Errorf("callCount = %d, want 2", callCount)
	}
}
