package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/recap"
	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// handleRecap generates a short first-person recap of the user's giving
// year. The numeric facts are computed here; the language model only phrases
// them. Returns 503 when no LLM is configured.
func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	if s.recap == nil || !s.recap.Enabled() {
		errorResponse(w, http.StatusServiceUnavailable, "Recap generation is not configured")
		return
	}

	year, err := planYear(r)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	donations, err := s.store.ListDonations(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	profile, err := s.store.GetProfile(r.Context(), userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var plan *types.Plan
	if p, err := s.store.GetPlan(r.Context(), userID, year); err == nil {
		plan = p
	} else if !errors.Is(err, store.ErrNotFound) {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	names := make(map[string]string)
	for _, d := range donations {
		if d.EIN == "" {
			continue
		}
		if p, ok := s.catalog.Get(d.EIN); ok {
			names[d.EIN] = p.Name
		}
	}

	facts := recap.BuildFactSheet(year, profile, plan, donations, names)

	text, err := s.recap.Generate(r.Context(), facts)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"year":  year,
		"recap": text,
	})
}
