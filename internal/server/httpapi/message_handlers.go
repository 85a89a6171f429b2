package httpapi

import (
	"net/http"
	"time"
)

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ciphertext string    `json:"ciphertext" validate:"required"`
		IV         string    `json:"iv" validate:"required"`
		SentAt     time.Time `json:"sentAt" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	msg, duplicate, err := h.messages.Save(r.Context(),
		userIDFromContext(r.Context()), deviceIDFromContext(r.Context()),
		req.Ciphertext, req.IV, req.SentAt)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	h.respondWithJSON(r.Context(), w, http.StatusCreated, map[string]any{
		"id":        msg.ID,
		"sentAt":    msg.SentAt,
		"duplicate": duplicate,
	})
}

func (h *Handler) handleMessagesSince(w http.ResponseWriter, r *http.Request) {
	since := time.Unix(0, 0).UTC()
	if raw := r.URL.Query().Get("timestamp"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.respondWithError(r.Context(), w, http.StatusBadRequest, "invalid timestamp")
			return
		}
		since = parsed
	}

	list, err := h.messages.History(r.Context(), userIDFromContext(r.Context()), since)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	out := make([]messageDTO, 0, len(list))
	for i := range list {
		out = append(out, toMessageDTO(&list[i]))
	}
	h.respondWithJSON(r.Context(), w, http.StatusOK, map[string]any{"messages": out})
}
