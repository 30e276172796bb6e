package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/chepyr/go-task-planner/internal/db"
	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDocument struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	User  userDocument `json:"user"`
	Token string       `json:"token"`
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger().WithField("handler", "register")
	if !h.allow(r) {
		log.WithField("ip", clientIP(r)).Warn("rate limit exceeded")
		sendError(w, "Too many register attempts. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Bad JSON", http.StatusBadRequest)
		return
	}
	input.Email = strings.TrimSpace(input.Email)
	if !validateCredentials(input, w) {
		return
	}

	if _, err := h.UserRepo.GetByEmail(r.Context(), input.Email); err == nil {
		sendError(w, "Email already registered", http.StatusConflict)
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		log.WithError(err).Error("lookup user")
		sendError(w, "Cannot save user", http.StatusInternalServerError)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Error("hash password")
		sendError(w, "Cannot hash password", http.StatusInternalServerError)
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name, _, _ = strings.Cut(input.Email, "@")
	}
	now := h.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.UserRepo.Create(r.Context(), user); err != nil {
		log.WithError(err).Error("create user")
		sendError(w, "Cannot save user", http.StatusInternalServerError)
		return
	}

	token, err := h.generateJWTToken(user.ID)
	if err != nil {
		log.WithError(err).Error("generate token")
		sendError(w, "Cannot create token", http.StatusInternalServerError)
		return
	}

	log.WithField("user_id", user.ID).Info("user registered")
	sendJSON(w, http.StatusCreated, authResponse{User: toUserDocument(user), Token: token})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger().WithField("handler", "login")
	if !h.allow(r) {
		log.WithField("ip", clientIP(r)).Warn("rate limit exceeded")
		sendError(w, "Too many login attempts. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Bad JSON", http.StatusBadRequest)
		return
	}
	input.Email = strings.TrimSpace(input.Email)
	if !validateCredentials(input, w) {
		return
	}

	user, err := h.UserRepo.GetByEmail(r.Context(), input.Email)
	if err != nil {
		log.WithError(err).Debug("user lookup failed")
		sendError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		sendError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.generateJWTToken(user.ID)
	if err != nil {
		log.WithError(err).Error("generate token")
		sendError(w, "Cannot create token", http.StatusInternalServerError)
		return
	}

	log.WithFields(logrus.Fields{"user_id": user.ID}).Info("user logged in")
	sendJSON(w, http.StatusOK, authResponse{User: toUserDocument(user), Token: token})
}

func (h *Handler) allow(r *http.Request) bool {
	return h.RateLimiter == nil || h.RateLimiter.Allow(clientIP(r))
}

func (h *Handler) generateJWTToken(sub string) (string, error) {
	if h.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := h.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	})
	signed, err := token.SignedString([]byte(h.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

func validateCredentials(input credentials, w http.ResponseWriter) bool {
	if !isValidEmail(input.Email) {
		sendError(w, "Invalid email", http.StatusBadRequest)
		return false
	}
	if len(input.Password) < 4 {
		sendError(w, "Password must be at least 4 characters long", http.StatusBadRequest)
		return false
	}
	return true
}

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func toUserDocument(u *models.User) userDocument {
	return userDocument{ID: u.ID, Name: u.Name, Email: u.Email}
}
