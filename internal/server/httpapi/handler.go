// Package httpapi exposes the sync server over a JSON HTTP API: account
// and session endpoints under /auth, message push/pull under /messages.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/logging"
	"github.com/antonpetrovs/whisperline/internal/server/models"
	"github.com/antonpetrovs/whisperline/internal/server/services"
)

const refreshCookieName = "refresh_token"

// UserService is the account/session surface the handlers need.
type UserService interface {
	Register(ctx context.Context, email, password, deviceID string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password, deviceID string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	VerifyAccessToken(tokenString string) (string, error)
	TokenPairFor(ctx context.Context, userID, deviceID string) (*services.TokenPair, error)
}

type MessageService interface {
	Save(ctx context.Context, userID, deviceID, ciphertext, iv string, sentAt time.Time) (*models.Message, bool, error)
	History(ctx context.Context, userID string, since time.Time) ([]models.Message, error)
}

type PairingService interface {
	Init(ctx context.Context, userID string) (string, error)
	Redeem(ctx context.Context, token string) (string, error)
}

type Handler struct {
	users           UserService
	messages        MessageService
	pairing         PairingService
	validate        *validator.Validate
	log             logging.Logger
	refreshTokenTTL time.Duration
}

func NewHandler(users UserService, messages MessageService, pairing PairingService,
	refreshTokenTTL time.Duration, log logging.Logger) *Handler {
	return &Handler{
		users:           users,
		messages:        messages,
		pairing:         pairing,
		validate:        validator.New(),
		log:             log,
		refreshTokenTTL: refreshTokenTTL,
	}
}

type userDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	EncryptionSalt string `json:"encryptionSalt"`
}

type authResponse struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken,omitempty"`
	User         userDTO `json:"user"`
}

type messageDTO struct {
	ID         string    `json:"id"`
	Ciphertext string    `json:"ciphertext"`
	IV         string    `json:"iv"`
	SentAt     time.Time `json:"sentAt"`
	DeviceID   string    `json:"deviceId"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, EncryptionSalt: u.EncryptionSalt}
}

func toMessageDTO(m *models.Message) messageDTO {
	return messageDTO{
		ID:         m.ID,
		Ciphertext: m.Ciphertext,
		IV:         m.IV,
		SentAt:     m.SentAt,
		DeviceID:   m.DeviceID,
	}
}

func (h *Handler) respondWithJSON(ctx context.Context, w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.log.Error(ctx, "serializing response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func (h *Handler) respondWithError(ctx context.Context, w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(ctx, w, code, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// respondWithServiceError translates sentinel errors into status codes.
func (h *Handler) respondWithServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrSessionExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrPairingToken):
		h.respondWithError(ctx, w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrUserAlreadyExists):
		h.respondWithError(ctx, w, http.StatusConflict, "email already registered")
	case errors.Is(err, common.ErrValidation):
		h.respondWithError(ctx, w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, common.ErrorNotFound):
		h.respondWithError(ctx, w, http.StatusNotFound, "not found")
	default:
		h.log.Error(ctx, "request failed", "error", err)
		h.respondWithError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithError(r.Context(), w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondWithError(r.Context(), w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// decodeBodyLenient parses an optional JSON body, treating an empty body as
// an empty object.
func (h *Handler) decodeBodyLenient(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// setRefreshCookie mirrors the refresh token into an httpOnly cookie for
// browser clients. Device clients read it from the JSON body instead.
func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.refreshTokenTTL.Seconds()),
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
