package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/icodeDev93/telegram-challenge-bot/internal/telegram"
)

// UpdateDispatcher routes a decoded Telegram update to the bot logic.
type UpdateDispatcher interface {
	HandleUpdate(ctx context.Context, upd *telegram.Update) error
}

type WebhookHandler struct {
	dispatcher UpdateDispatcher
	secret     string
}

// NewWebhookHandler builds the Telegram webhook endpoint. When secret
// is non-empty, requests must carry it as the final path segment.
func NewWebhookHandler(dispatcher UpdateDispatcher, secret string) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		secret:     secret,
	}
}

// HandleTelegramWebhook accepts updates pushed by Telegram. Once the
// request passes validation it always answers 200 with an empty body,
// even when processing fails, so Telegram does not keep redelivering
// the same update.
func (h *WebhookHandler) HandleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && mux.Vars(r)["secret"] != h.secret {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		log.Printf("webhook: failed to decode update: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	if err := h.dispatcher.HandleUpdate(ctx, &upd); err != nil {
		errID := uuid.New().String()
		log.Printf("webhook: update %d failed (error id %s): %v", upd.UpdateID, errID, err)
	}

	w.WriteHeader(http.StatusOK)
}
