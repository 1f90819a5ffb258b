package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// handleListBookmarks lists the user's saved charities.
func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	bookmarks, err := s.store.ListBookmarks(r.Context(), userID)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"bookmarks": bookmarks,
		"total":     len(bookmarks),
	})
}

// handleAddBookmark saves a charity for the user. The operation is
// idempotent; bookmarking an already-saved charity returns the existing row.
func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	ein, err := types.NormalizeEIN(r.PathValue("ein"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid EIN")
		return
	}

	bookmark, err := s.store.AddBookmark(r.Context(), userID, ein)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, bookmark)
}

// handleRemoveBookmark removes a saved charity.
func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	ein, err := types.NormalizeEIN(r.PathValue("ein"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid EIN")
		return
	}

	if err := s.store.RemoveBookmark(r.Context(), userID, ein); err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
