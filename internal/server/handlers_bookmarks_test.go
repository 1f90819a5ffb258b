package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

type bookmarksResponse struct {
	Bookmarks []types.Bookmark `json:"bookmarks"`
	Total     int              `json:"total"`
}

func TestBookmarkLifecycle(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	// Dashed EIN input stores the canonical form.
	w := ts.do(t, http.MethodPut, "/api/me/bookmarks/13-1837418", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var b types.Bookmark
	decode(t, w, &b)
	assert.Equal(t, "131837418", b.EIN)

	w = ts.do(t, http.MethodGet, "/api/me/bookmarks", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list bookmarksResponse
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Bookmarks, 1)
	assert.Equal(t, "131837418", list.Bookmarks[0].EIN)

	w = ts.do(t, http.MethodDelete, "/api/me/bookmarks/131837418", nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/me/bookmarks", nil, token)
	decode(t, w, &list)
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Bookmarks)
}

func TestBookmarkAddIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	first := ts.do(t, http.MethodPut, "/api/me/bookmarks/131837418", nil, token)
	require.Equal(t, http.StatusOK, first.Code)
	second := ts.do(t, http.MethodPut, "/api/me/bookmarks/131837418", nil, token)
	require.Equal(t, http.StatusOK, second.Code)

	w := ts.do(t, http.MethodGet, "/api/me/bookmarks", nil, token)
	var list bookmarksResponse
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)
}

func TestBookmarkErrors(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPut, "/api/me/bookmarks/not-an-ein", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Removing a bookmark that was never set reports 404 so the client can
	// roll back its optimistic removal.
	w = ts.do(t, http.MethodDelete, "/api/me/bookmarks/131837418", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookmarksAreScopedPerUser(t *testing.T) {
	ts := newTestServer(t)
	_, amina := ts.register(t, "Amina", "amina@example.com", "correct-horse-battery")
	_, bilal := ts.register(t, "Bilal", "bilal@example.com", "correct-horse-battery")

	w := ts.do(t, http.MethodPut, "/api/me/bookmarks/131837418", nil, amina)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/me/bookmarks", nil, bilal)
	var list bookmarksResponse
	decode(t, w, &list)
	assert.Equal(t, 0, list.Total)
}
