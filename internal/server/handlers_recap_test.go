package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecapUnavailableWithoutModel(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPost, "/api/me/recap?year=2025", nil, token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecapGeneratesFromGivingHistory(t *testing.T) {
	model := &fakeLLM{response: "This year you gave with intention and consistency."}
	ts := newTestServer(t,
		withCatalog(newTestCatalog(t, fixtureProfiles()...)),
		withRecap(model),
	)
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPost, "/api/me/donations", map[string]any{
		"amountCents": 50000,
		"kind":        "zakat",
		"ein":         "131837418",
		"donatedOn":   "2025-04-12",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, "/api/me/recap?year=2025", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Year  int    `json:"year"`
		Recap string `json:"recap"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 2025, resp.Year)
	assert.Equal(t, model.response, resp.Recap)

	// The prompt carries the computed facts; the model only phrases them.
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "2025")
	assert.Contains(t, model.prompts[0], "Direct Relief")
}

func TestRecapModelFailure(t *testing.T) {
	ts := newTestServer(t, withRecap(&fakeLLM{err: errors.New("quota exceeded")}))
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPost, "/api/me/recap?year=2025", nil, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecapYearValidation(t *testing.T) {
	ts := newTestServer(t, withRecap(&fakeLLM{response: "ok"}))
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPost, "/api/me/recap?year=1300", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
