package server

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/uabbasi/good-measure-giving/internal/log"
)

// dataFileServer serves the converted charity data files under /data/.
// GET and HEAD only, no directory listings, and requests may not escape the
// data directory through traversal sequences or symlinks.
type dataFileServer struct {
	root   string
	logger zerolog.Logger
}

func newDataFileServer(root string) *dataFileServer {
	return &dataFileServer{
		root:   root,
		logger: log.WithComponent("fileserver"),
	}
}

func (f *dataFileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reqPath := r.URL.Path
	if isPathTraversal(reqPath) {
		f.logger.Warn().Str("path", reqPath).Msg("rejected traversal attempt")
		errorResponse(w, http.StatusForbidden, "Forbidden")
		return
	}
	if reqPath == "" || strings.HasSuffix(reqPath, "/") {
		errorResponse(w, http.StatusForbidden, "Directory listing is not allowed")
		return
	}

	absRoot, err := filepath.Abs(f.root)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to resolve data dir")
		errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	fullPath := filepath.Join(absRoot, filepath.FromSlash(reqPath))

	realPath, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			errorResponse(w, http.StatusNotFound, "Not found")
			return
		}
		f.logger.Error().Err(err).Str("path", fullPath).Msg("failed to resolve file path")
		errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to resolve data dir")
		errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Containment check: the resolved file must still live under the
	// resolved data dir, so symlinks cannot escape it either.
	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		f.logger.Warn().Str("path", reqPath).Str("resolved", realPath).Msg("path escapes data directory")
		errorResponse(w, http.StatusForbidden, "Forbidden")
		return
	}

	file, err := os.Open(realPath) // #nosec G304 -- realPath is contained in the data dir
	if err != nil {
		f.logger.Error().Err(err).Str("path", realPath).Msg("failed to open file")
		errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		f.logger.Error().Err(err).Str("path", realPath).Msg("failed to stat file")
		errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if info.IsDir() {
		errorResponse(w, http.StatusForbidden, "Directory listing is not allowed")
		return
	}

	// Weak ETag from modtime and size; the converter rewrites files
	// atomically so this pair changes on every content change.
	etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=300")

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// ServeContent handles Range requests and sets Content-Type from the
	// file extension, Content-Length, and Last-Modified.
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

// isPathTraversal checks a request path for traversal sequences, including
// double-encoded, overlong-UTF-8, and NUL-byte variants.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	for _, pattern := range []string{"..", "%00", "%c0%ae", "%e0%80%ae"} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	if strings.IndexByte(decoded, 0x00) >= 0 {
		return true
	}

	// Unicode tricks: normalize, then check for dot-dot again.
	return strings.Contains(norm.NFC.String(lower), "..")
}
