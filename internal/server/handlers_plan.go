package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/allocation"
	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// planYear reads the ?year= parameter, defaulting to the current UTC year.
func planYear(r *http.Request) (int, error) {
	year := parseQueryInt(r, "year", time.Now().UTC().Year(), 0)
	if year < 2000 || year > 2200 {
		return 0, &ErrValidation{Field: "year", Message: "must be between 2000 and 2200"}
	}
	return year, nil
}

// loadPlan fetches the user's plan for a year. A user who never saved one
// gets an empty plan rather than a 404, so the allocation UI can start from
// a blank slate.
func (s *Server) loadPlan(ctx context.Context, userID uuid.UUID, year int) (types.Plan, error) {
	plan, err := s.store.GetPlan(ctx, userID, year)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Plan{Year: year, Currency: "USD", Buckets: []types.Bucket{}}, nil
		}
		return types.Plan{}, err
	}
	return *plan, nil
}

// handleGetPlan returns the giving plan for a year.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	year, err := planYear(r)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	plan, err := s.loadPlan(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, allocation.Normalize(plan))
}

// handleSavePlan persists the client's full plan state. Saves are idempotent:
// the plan is normalized, stored whole, and echoed back. Mid-edit states
// whose percents do not yet total 100 are accepted; the client debounces
// saves while the user drags sliders.
func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var req types.SavePlanRequest
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

	plan := types.Plan{
		Year:        req.Year,
		TargetCents: req.TargetCents,
		Currency:    currency,
		Buckets:     req.Buckets,
	}
	for i := range plan.Buckets {
		if plan.Buckets[i].ID == uuid.Nil {
			plan.Buckets[i].ID = uuid.New()
		}
	}

	saved, err := s.store.SavePlan(r.Context(), userID, allocation.Normalize(plan))
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, saved)
}

// handleCreateBucket appends a bucket to the plan and returns both the
// created bucket and the full post-write plan.
func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	year, err := planYear(r)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var req types.CreateBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	plan, err := s.loadPlan(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	plan, bucket := allocation.AddBucket(plan, strings.TrimSpace(req.Name), req.Causes)

	saved, err := s.store.SavePlan(r.Context(), userID, plan)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	created := bucket
	for _, b := range saved.Buckets {
		if b.ID == bucket.ID {
			created = b
			break
		}
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"bucket": created,
		"plan":   saved,
	})
}

// handlePatchBucket edits one bucket. A percent edit or an amount edit
// triggers the matching reconcile; at most one of the two may be present.
// Name and cause edits never reconcile.
func (s *Server) handlePatchBucket(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid bucket ID")
		return
	}

	year, err := planYear(r)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var req types.PatchBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}
	if req.Percent != nil && req.AmountCents != nil {
		errorResponse(w, http.StatusBadRequest, "Set at most one of percent and amountCents")
		return
	}

	plan, err := s.loadPlan(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	idx := -1
	for i := range plan.Buckets {
		if plan.Buckets[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		errorResponse(w, http.StatusNotFound, "Bucket not found")
		return
	}

	if req.Name != nil {
		plan.Buckets[idx].Name = strings.TrimSpace(*req.Name)
	}
	if req.Causes != nil {
		plan.Buckets[idx].Causes = *req.Causes
	}

	switch {
	case req.Percent != nil:
		plan, err = allocation.SetBucketPercent(plan, id, *req.Percent)
	case req.AmountCents != nil:
		plan, err = allocation.SetBucketAmount(plan, id, *req.AmountCents)
	default:
		plan = allocation.Normalize(plan)
	}
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	saved, err := s.store.SavePlan(r.Context(), userID, plan)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, saved)
}

// handleDeleteBucket removes a bucket, rescaling the survivors, and returns
// the full post-write plan.
func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid bucket ID")
		return
	}

	year, err := planYear(r)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	plan, err := s.loadPlan(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	plan, err = allocation.RemoveBucket(plan, id)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	saved, err := s.store.SavePlan(r.Context(), userID, plan)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, saved)
}

// handlePlanProgress reports the year's donations measured against the plan.
func (s *Server) handlePlanProgress(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	year, err := planYear(r)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	plan, err := s.loadPlan(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	donations, err := s.store.ListDonations(r.Context(), userID, year)
	if err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, allocation.Progress(plan, donations, year))
}
