package server

import (
	"net/http"
	"strconv"

	"github.com/uabbasi/good-measure-giving/internal/catalog"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// parseQueryInt parses an integer query parameter with default and max values
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

// handleListCharities lists catalog summaries, filtered and paged.
func (s *Server) handleListCharities(w http.ResponseWriter, r *http.Request) {
	f := catalog.Filter{
		Query:   r.URL.Query().Get("q"),
		Cause:   r.URL.Query().Get("cause"),
		Country: r.URL.Query().Get("country"),
		Limit:   parseQueryInt(r, "limit", catalog.DefaultLimit, catalog.MaxLimit),
		Offset:  parseQueryInt(r, "offset", 0, 0),
	}

	charities, total := s.catalog.List(f)

	jsonResponse(w, http.StatusOK, map[string]any{
		"charities": charities,
		"total":     total,
		"limit":     f.Limit,
		"offset":    f.Offset,
	})
}

// charityFromPath resolves the {ein} path value against the catalog. It
// writes the error response itself and returns nil when the request is done.
func (s *Server) charityFromPath(w http.ResponseWriter, r *http.Request) *types.CharityProfile {
	ein, err := types.NormalizeEIN(r.PathValue("ein"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid EIN")
		return nil
	}

	profile, ok := s.catalog.Get(ein)
	if !ok {
		errorResponse(w, http.StatusNotFound, "Charity not found")
		return nil
	}
	return profile
}

// handleGetCharity retrieves a full charity profile by EIN.
func (s *Server) handleGetCharity(w http.ResponseWriter, r *http.Request) {
	profile := s.charityFromPath(w, r)
	if profile == nil {
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

// handleGetEvaluation retrieves a charity's Amal evaluation.
func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	profile := s.charityFromPath(w, r)
	if profile == nil {
		return
	}
	if profile.Evaluation == nil {
		errorResponse(w, http.StatusNotFound, "Evaluation not available for this charity")
		return
	}
	jsonResponse(w, http.StatusOK, profile.Evaluation)
}

// handleGetCitations retrieves a charity's resolved citation list. The
// conversion pipeline already upgraded homepage-level URLs to deep links, so
// this serves the stored sources as-is.
func (s *Server) handleGetCitations(w http.ResponseWriter, r *http.Request) {
	profile := s.charityFromPath(w, r)
	if profile == nil {
		return
	}
	if profile.Evaluation == nil {
		errorResponse(w, http.StatusNotFound, "Evaluation not available for this charity")
		return
	}

	citations := profile.Evaluation.Sources
	if citations == nil {
		citations = []types.Citation{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"ein":       profile.EIN,
		"citations": citations,
	})
}
