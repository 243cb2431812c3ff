package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/diewo77/solodesk/auth"
	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/services"
	"github.com/diewo77/solodesk/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type AuthHandler struct {
	db            *gorm.DB
	tokens        *auth.Tokens
	notifications *services.NotificationService
}

func NewAuthHandler(db *gorm.DB, tokens *auth.Tokens, notifications *services.NotificationService) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, notifications: notifications}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, exp, err := h.tokens.Issue(user.ID)
	if err != nil {
		httpx.Error(w, fmt.Errorf("issue token: %w", err))
		return
	}
	httpx.OK(w, status, map[string]any{"token": token, "expiresAt": exp, "user": user}, nil)
}

// Register creates an account, sends the welcome notification and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	if len(in.Password) < minPasswordLength {
		v["password"] = "too_short"
	}
	if !v.Empty() {
		httpx.Error(w, apperr.Invalid("Invalid registration", v))
		return
	}

	var count int64
	if err := h.db.WithContext(r.Context()).Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		httpx.Error(w, apperr.Dependency("failed to check email", err))
		return
	}
	if count > 0 {
		httpx.Error(w, apperr.Conflict("User already exists"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.Error(w, fmt.Errorf("hash password: %w", err))
		return
	}
	user := models.User{Email: in.Email, Name: strings.TrimSpace(in.Name), Password: string(hashed)}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		httpx.Error(w, apperr.Dependency("failed to create user", err))
		return
	}

	if h.notifications != nil {
		_ = h.notifications.Notify(r.Context(), &models.Notification{
			UserID:   user.ID,
			Type:     models.NotificationWelcome,
			Title:    "Welcome to SoloDesk",
			Message:  "Start by adding your first client.",
			Priority: models.NotificationPriorityLow,
		})
	}
	h.respondWithToken(w, http.StatusCreated, &user)
}

// Login checks the password and returns a fresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	invalid := apperr.Invalid("Invalid credentials", nil)

	var user models.User
	err := h.db.WithContext(r.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, invalid)
			return
		}
		httpx.Error(w, apperr.Dependency("failed to load user", err))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		httpx.Error(w, invalid)
		return
	}
	h.respondWithToken(w, http.StatusOK, &user)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, apperr.NotFound("User not found"))
			return
		}
		httpx.Error(w, apperr.Dependency("failed to load user", err))
		return
	}
	httpx.OK(w, http.StatusOK, user, nil)
}
