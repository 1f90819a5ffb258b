package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

func TestGetProfileDefaultsBeforeFirstSave(t *testing.T) {
	ts := newTestServer(t)
	user, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodGet, "/api/me/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var p types.UserProfile
	decode(t, w, &p)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, "USD", p.Currency)
	assert.Nil(t, p.ZakatDueDate)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPut, "/api/me/profile", map[string]any{
		"displayName":  "  Amina K.  ",
		"currency":     "gbp",
		"zakatDueDate": "2025-03-01",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)

	var p types.UserProfile
	decode(t, w, &p)
	assert.Equal(t, "Amina K.", p.DisplayName)
	assert.Equal(t, "GBP", p.Currency)
	require.NotNil(t, p.ZakatDueDate)
	assert.Equal(t, 2025, p.ZakatDueDate.Year())

	// The saved profile persists.
	w = ts.do(t, http.MethodGet, "/api/me/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &p)
	assert.Equal(t, "GBP", p.Currency)
}

func TestUpdateProfileValidation(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPut, "/api/me/profile", map[string]any{
		"currency": "POUNDS",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
