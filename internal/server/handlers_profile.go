package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// defaultProfile is what a user who never saved a profile gets back.
func defaultProfile(userID uuid.UUID) types.UserProfile {
	return types.UserProfile{
		UserID:   userID,
		Currency: "USD",
	}
}

// handleGetProfile returns the donor profile, or the default profile when
// none has been saved yet.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	profile, err := s.store.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonResponse(w, http.StatusOK, defaultProfile(userID))
			return
		}
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

// handleUpdateProfile replaces the donor profile and returns the stored
// state.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var req types.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}

	profile, err := s.store.UpsertProfile(r.Context(), types.UserProfile{
		UserID:       userID,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Currency:     currency,
		ZakatDueDate: req.ZakatDueDate,
	})
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, profile)
}
