package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/antonpetrovs/whisperline/internal/common"
)

type contextKey string

const (
	userIDContextKey   = contextKey("userID")
	deviceIDContextKey = contextKey("deviceID")
)

// AuthMiddleware validates the bearer token and stores the user id and the
// declared device id in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(common.AuthorizationHeaderName)
		if authHeader == "" {
			h.respondWithError(r.Context(), w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			h.respondWithError(r.Context(), w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		userID, err := h.users.VerifyAccessToken(parts[1])
		if err != nil {
			h.respondWithError(r.Context(), w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		ctx = context.WithValue(ctx, deviceIDContextKey, r.Header.Get(common.DeviceIDHeaderName))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}

func deviceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDContextKey).(string)
	return id
}
