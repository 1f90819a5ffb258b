package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog"
)

// newAuthProxy builds a reverse proxy for an external identity provider.
// Deployments that front the API with a hosted auth service mount it at
// /__/auth/ so browser clients can reach it through the same origin.
func newAuthProxy(upstream string, logger zerolog.Logger) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse auth upstream URL %q: %w", upstream, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("auth upstream URL %q must be http or https", upstream)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error().
				Err(err).
				Str("upstream", target.Host).
				Str("path", r.URL.Path).
				Msg("auth upstream request failed")
			errorResponse(w, http.StatusBadGateway, "Auth service unavailable")
		},
	}

	return proxy, nil
}
