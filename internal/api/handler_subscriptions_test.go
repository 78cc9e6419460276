package api

import (
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSubscription(t *testing.T) {
	h := newHarness(t)

	w := h.doJSON(t, http.MethodPut, "/api/subscriptions", "U1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := `{"endpoint":"https://push.example/abc%3D","p256dh":"key","auth":"secret"}`
	w = h.doJSON(t, http.MethodPut, "/api/subscriptions", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.doJSON(t, http.MethodPut, "/api/subscriptions", "U1", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.doJSON(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc%3D", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"endpoint":"https://push.example/abc%3D","userId":"U1"}`, w.Body.String())

	w = h.doJSON(t, http.MethodGet, "/api/vapid_public_key", "U1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = h.doJSON(t, http.MethodDelete, "/api/subscriptions", "U2", `{"endpoint":"https://push.example/abc%3D"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.doJSON(t, http.MethodDelete, "/api/subscriptions", "U1", `{"endpoint":"https://push.example/abc%3D"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.doJSON(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc%3D", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSubscription_RequiresEndpoint(t *testing.T) {
	h := newHarness(t)
	w := h.doJSON(t, http.MethodGet, "/api/subscriptions", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.doJSON(t, http.MethodDelete, "/api/subscriptions", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSubscription_FromQuery(t *testing.T) {
	h := newHarness(t)

	body := `{"endpoint":"https://push.example/q","p256dh":"key","auth":"secret"}`
	w := h.doJSON(t, http.MethodPut, "/api/subscriptions", "U1", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.doJSON(t, http.MethodDelete, "/api/subscriptions?endpoint=https://push.example/q", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	h := newHarness(t)

	w := h.doJSON(t, http.MethodGet, "/api/vapid_public_key", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.handler.webpush = &webpush.Options{VAPIDPublicKey: "pub"}
	w = h.doJSON(t, http.MethodGet, "/api/vapid_public_key", "", "")
	assert.JSONEq(t, `{"publicKey":"pub","subscribed":false}`, w.Body.String())

	body := `{"endpoint":"https://push.example/v","p256dh":"key","auth":"secret"}`
	w = h.doJSON(t, http.MethodPut, "/api/subscriptions", "U1", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.doJSON(t, http.MethodGet, "/api/vapid_public_key", "U1", "")
	assert.JSONEq(t, `{"publicKey":"pub","subscribed":true}`, w.Body.String())
}
