package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// handleListTargets lists the user's per-charity dollar targets.
func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	targets, err := s.store.ListTargets(r.Context(), userID)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"targets": targets,
		"total":   len(targets),
	})
}

// handleSetTarget creates or replaces the dollar target for one charity and
// returns the stored row.
func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	ein, err := types.NormalizeEIN(r.PathValue("ein"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid EIN")
		return
	}

	var req types.SetTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	target, err := s.store.SetTarget(r.Context(), types.CharityTarget{
		UserID:      userID,
		EIN:         ein,
		BucketID:    req.BucketID,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, target)
}

// handleRemoveTarget removes the dollar target for one charity.
func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	ein, err := types.NormalizeEIN(r.PathValue("ein"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid EIN")
		return
	}

	if err := s.store.RemoveTarget(r.Context(), userID, ein); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(w, http.StatusNotFound, "Target not found")
			return
		}
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
