package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icodeDev93/telegram-challenge-bot/internal/telegram"
)

type fakeDispatcher struct {
	updates []*telegram.Update
	err     error
}

func (f *fakeDispatcher) HandleUpdate(_ context.Context, upd *telegram.Update) error {
	f.updates = append(f.updates, upd)
	return f.err
}

func newWebhookRouter(dispatcher UpdateDispatcher, secret string) *mux.Router {
	h := NewWebhookHandler(dispatcher, secret)
	r := mux.NewRouter()
	r.HandleFunc("/webhook", h.HandleTelegramWebhook).Methods("POST")
	r.HandleFunc("/webhook/{secret}", h.HandleTelegramWebhook).Methods("POST")
	r.HandleFunc("/", HealthCheck).Methods("GET")
	return r
}

func postUpdate(t *testing.T, router *mux.Router, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

const updateJSON = `{"update_id": 10, "message": {"message_id": 1, "from": {"id": 5, "first_name": "Alice"}, "chat": {"id": 5}, "text": "/start"}}`

func TestWebhookDispatchesUpdate(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	router := newWebhookRouter(dispatcher, "")

	rr := postUpdate(t, router, "/webhook", "application/json", updateJSON)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	require.Len(t, dispatcher.updates, 1)
	assert.Equal(t, int64(10), dispatcher.updates[0].UpdateID)
	assert.Equal(t, "/start", dispatcher.updates[0].Message.Text)
}

func TestWebhookAcceptsSecretSuffix(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	router := newWebhookRouter(dispatcher, "s3cret")

	rr := postUpdate(t, router, "/webhook/s3cret", "application/json", updateJSON)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, dispatcher.updates, 1)
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	router := newWebhookRouter(dispatcher, "s3cret")

	rr := postUpdate(t, router, "/webhook/wrong", "application/json", updateJSON)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, dispatcher.updates)
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	router := newWebhookRouter(dispatcher, "s3cret")

	rr := postUpdate(t, router, "/webhook", "application/json", updateJSON)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, dispatcher.updates)
}

func TestWebhookRejectsWrongContentType(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	router := newWebhookRouter(dispatcher, "")

	rr := postUpdate(t, router, "/webhook", "text/plain", updateJSON)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, dispatcher.updates)
}

func TestWebhookSwallowsDispatchError(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("sheet unavailable")}
	router := newWebhookRouter(dispatcher, "")

	rr := postUpdate(t, router, "/webhook", "application/json", updateJSON)

	// 200 regardless, so Telegram does not redeliver.
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestWebhookSwallowsMalformedBody(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	router := newWebhookRouter(dispatcher, "")

	rr := postUpdate(t, router, "/webhook", "application/json", "{not json")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, dispatcher.updates)
}

func TestHealthCheck(t *testing.T) {
	router := newWebhookRouter(&fakeDispatcher{}, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}
