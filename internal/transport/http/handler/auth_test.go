package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qr-attendance-api/internal/application/auth"
	"github.com/qr-attendance-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Login(ctx context.Context, req domain.LoginRequest) (*auth.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	svc := &mockAuthSvc{}
	h := NewAuthHandler(svc)
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := &mockAuthSvc{}
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(domain.RegisterRequest{
		UniversityID: "U2026001", Name: "Alice", Password: "short", Role: domain.RoleStudent,
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_BadRole(t *testing.T) {
	svc := &mockAuthSvc{}
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(domain.RegisterRequest{
		UniversityID: "U2026001", Name: "Alice", Password: "secret-password", Role: "dean",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRegister_Conflict(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(domain.RegisterRequest{
		UniversityID: "U2026001", Name: "Alice", Password: "secret-password", Role: domain.RoleStudent,
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegister_HappyPath_NoHashInResponse(t *testing.T) {
	svc := &mockAuthSvc{}
	u := &domain.User{UserID: "u1", UniversityID: "U2026001", Name: "Alice", PasswordHash: "$2a$10$secret", Role: domain.RoleStudent}
	svc.On("Register", mock.Anything, mock.Anything).Return(u, nil)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(domain.RegisterRequest{
		UniversityID: "U2026001", Name: "Alice", Password: "secret-password", Role: domain.RoleStudent,
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "$2a$10$secret")
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "U2026001", resp.User.UniversityID)
}

// --- Login tests ---

func TestLogin_HappyPath(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(&auth.LoginResult{
		Bearer: "bearer-token",
		User:   &domain.User{UserID: "u1", Role: domain.RoleLecturer},
	}, nil)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(domain.LoginRequest{UniversityID: "U2026001", Password: "secret-password"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "bearer-token", resp.Bearer)
	assert.Equal(t, domain.RoleLecturer, resp.User.Role)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(domain.LoginRequest{UniversityID: "U2026001", Password: "wrong-password"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	svc := &mockAuthSvc{}
	h := NewAuthHandler(svc)
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString(`{"university_id":"U2026001"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
