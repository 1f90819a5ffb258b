package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/metrics"
	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// handleListDonations lists the user's giving history, optionally limited to
// one calendar year via ?year=.
func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	year := parseQueryInt(r, "year", 0, 0)

	donations, err := s.store.ListDonations(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"donations": donations,
		"total":     len(donations),
	})
}

// donationFromRequest validates and converts a create/update body. It writes
// the error response itself and reports false when the request is done.
func (s *Server) donationFromRequest(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (types.Donation, bool) {
	var req types.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return types.Donation{}, false
	}

	if err := s.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return types.Donation{}, false
	}
	if req.Kind != "" && !req.Kind.IsValid() {
		errorResponse(w, http.StatusBadRequest, types.ErrInvalidGivingKind.Error())
		return types.Donation{}, false
	}
	if req.EIN != "" {
		ein, err := types.NormalizeEIN(req.EIN)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, "Invalid EIN")
			return types.Donation{}, false
		}
		req.EIN = ein
	}

	// Currency, kind, and donation-date defaults are filled by the store.
	return types.Donation{
		UserID:      userID,
		EIN:         req.EIN,
		BucketID:    req.BucketID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Kind:        req.Kind,
		Note:        req.Note,
		DonatedOn:   req.DonatedOn,
	}, true
}

// handleCreateDonation records a donation and returns the stored row.
func (s *Server) handleCreateDonation(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	donation, ok := s.donationFromRequest(w, r, userID)
	if !ok {
		return
	}

	created, err := s.store.CreateDonation(r.Context(), donation)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	metrics.DonationsRecorded.Inc()
	jsonResponse(w, http.StatusCreated, created)
}

// handleUpdateDonation replaces a donation and returns the stored row.
func (s *Server) handleUpdateDonation(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid donation ID")
		return
	}

	donation, ok := s.donationFromRequest(w, r, userID)
	if !ok {
		return
	}
	donation.ID = id

	updated, err := s.store.UpdateDonation(r.Context(), donation)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(w, http.StatusNotFound, "Donation not found")
			return
		}
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// handleDeleteDonation removes a donation.
func (s *Server) handleDeleteDonation(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid donation ID")
		return
	}

	if err := s.store.DeleteDonation(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(w, http.StatusNotFound, "Donation not found")
			return
		}
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDonationSummary aggregates the user's giving for one calendar year.
func (s *Server) handleDonationSummary(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	year := parseQueryInt(r, "year", time.Now().UTC().Year(), 0)

	donations, err := s.store.ListDonations(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	currency := "USD"
	if profile, err := s.store.GetProfile(r.Context(), userID); err == nil && profile.Currency != "" {
		currency = profile.Currency
	}

	jsonResponse(w, http.StatusOK, types.SummarizeDonations(donations, year, currency))
}
