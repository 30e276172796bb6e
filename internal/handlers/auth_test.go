package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test_secret_that_is_long_enough_32"

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockRepo       *MockUserRepository
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Successful registration",
			body:           `{"email": "test@example.com", "password": "strongpass"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusCreated,
			expectedBody:   `"email":"test@example.com"`,
		},
		{
			name:           "Name defaults to email local part",
			body:           `{"email": "jane@example.com", "password": "strongpass"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusCreated,
			expectedBody:   `"name":"jane"`,
		},
		{
			name:           "Invalid JSON",
			body:           `{"email": "test@example.com", "password": }`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Bad JSON"`,
		},
		{
			name:           "Invalid email format",
			body:           `{"email": "invalid", "password": "strongpass"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Invalid email"`,
		},
		{
			name:           "Password too short",
			body:           `{"email": "test@example.com", "password": "abc"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Password must be at least 4 characters long"`,
		},
		{
			name:           "Email already registered",
			body:           `{"email": "test@example.com", "password": "strongpass"}`,
			mockRepo:       SetupMockUser("test@example.com", "whatever"),
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"Email already registered"`,
		},
		{
			name: "Repository failure",
			body: `{"email": "test@example.com", "password": "strongpass"}`,
			mockRepo: &MockUserRepository{
				users:     map[string]*models.User{},
				createErr: errors.New("disk full"),
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"Cannot save user"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{UserRepo: tt.mockRepo, JWTSecret: testSecret}
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			h.Register(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("want %d, got %d body=%s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestRegister_ReturnsUsableToken(t *testing.T) {
	h := &Handler{UserRepo: NewMockUserRepository(), JWTSecret: testSecret}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		bytes.NewBufferString(`{"name":"Ann","email":"ann@example.com","password":"secret"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d", rec.Code)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.ID == "" || resp.User.Name != "Ann" {
		t.Fatalf("unexpected user %+v", resp.User)
	}

	token, err := jwt.Parse(resp.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	sub, _ := token.Claims.GetSubject()
	if sub != resp.User.ID {
		t.Errorf("sub = %q, want %q", sub, resp.User.ID)
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockRepo       *MockUserRepository
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Successful login",
			body:           `{"email": "test@example.com", "password": "password123"}`,
			mockRepo:       SetupMockUser("test@example.com", "password123"),
			expectedStatus: http.StatusOK,
			expectedBody:   `"token":"`,
		},
		{
			name:           "Wrong password",
			body:           `{"email": "test@example.com", "password": "wrongpass"}`,
			mockRepo:       SetupMockUser("test@example.com", "password123"),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"Invalid email or password"`,
		},
		{
			name:           "Unknown user",
			body:           `{"email": "nobody@example.com", "password": "password123"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"Invalid email or password"`,
		},
		{
			name:           "Invalid JSON",
			body:           `{"email": `,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Bad JSON"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{UserRepo: tt.mockRepo, JWTSecret: testSecret}
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("want %d, got %d body=%s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	h := &Handler{
		UserRepo:    SetupMockUser("test@example.com", "password123"),
		JWTSecret:   testSecret,
		RateLimiter: NewRateLimiter(1, time.Minute),
	}
	body := `{"email": "test@example.com", "password": "wrongpass"}`

	first := httptest.NewRecorder()
	h.Login(first, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body)))
	if first.Code != http.StatusUnauthorized {
		t.Fatalf("first attempt: want 401, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.Login(second, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body)))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: want 429, got %d", second.Code)
	}
}
