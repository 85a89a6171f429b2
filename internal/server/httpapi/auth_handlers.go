package httpapi

import (
	"net/http"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/server/models"
	"github.com/antonpetrovs/whisperline/internal/server/services"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.users.Register(r.Context(), req.Email, req.Password, deviceIDFromRequest(r))
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	h.writeAuthResponse(w, r, http.StatusCreated, user, pair)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.users.Login(r.Context(), req.Email, req.Password, deviceIDFromRequest(r))
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	h.writeAuthResponse(w, r, http.StatusOK, user, pair)
}

// handleRefresh accepts the refresh token either in the JSON body (device
// clients) or in the httpOnly cookie (browsers).
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	// A missing or empty body is fine when the cookie is present.
	_ = h.decodeBodyLenient(r, &req)

	token := req.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		h.respondWithError(r.Context(), w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	accessToken, err := h.users.Refresh(r.Context(), token)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	h.respondWithJSON(r.Context(), w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Logout(r.Context(), userIDFromContext(r.Context())); err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQRInit(w http.ResponseWriter, r *http.Request) {
	token, err := h.pairing.Init(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}
	h.respondWithJSON(r.Context(), w, http.StatusOK, map[string]string{"qrToken": token})
}

// handleQRLogin trades a pairing token for a full session. The master key
// travels inside the QR payload between devices and never reaches the
// server; the field is accepted for wire compatibility and ignored.
func (h *Handler) handleQRLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string `json:"token" validate:"required"`
		MasterKey string `json:"masterKey"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	userID, err := h.pairing.Redeem(r.Context(), req.Token)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	pair, err := h.users.TokenPairFor(r.Context(), userID, deviceIDFromRequest(r))
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	h.writeAuthResponse(w, r, http.StatusOK, user, pair)
}

// deviceIDFromRequest reads the device header on unauthenticated routes,
// where the auth middleware has not populated the request context yet.
func deviceIDFromRequest(r *http.Request) string {
	return r.Header.Get(common.DeviceIDHeaderName)
}

func (h *Handler) writeAuthResponse(w http.ResponseWriter, r *http.Request, code int, user *models.User, pair *services.TokenPair) {
	h.setRefreshCookie(w, pair.RefreshToken)
	h.respondWithJSON(r.Context(), w, code, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toUserDTO(user),
	})
}
