package rest

import (
	"net/http"
	"strings"

	"github.com/nisabwisdom/backend/internal/service"
)

const maxChatMessageLen = 2000

// ChatHandler serves POST /api/v1/chat.
type ChatHandler struct {
	chat *service.Chat
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

// Message answers one chat message. The service degrades to canned
// guidance internally, so this handler never surfaces provider errors.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(message) > maxChatMessageLen {
		respondError(w, http.StatusBadRequest, "message too long")
		return
	}

	respondJSON(w, http.StatusOK, h.chat.Respond(r.Context(), message))
}
