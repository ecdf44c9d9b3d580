package web

// handlers_common.go holds helpers shared by the product and upload handlers.

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/Inventory/internal/logging"
	"github.com/JonMunkholm/Inventory/internal/web/middleware"
)

// productID parses the {id} URL parameter. Only positive integers can name
// a product.
func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeJSON encodes v with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Warn("json encode error", "error", err)
	}
}

// publicBaseURL is scheme://host for URLs handed back to clients. A
// configured public URL wins over the request's own host.
func (s *Server) publicBaseURL(r *http.Request) string {
	if s.cfg.Server.PublicURL != "" {
		return strings.TrimRight(s.cfg.Server.PublicURL, "/")
	}
	return middleware.Scheme(r) + "://" + r.Host
}

// absoluteURL turns a store location into a URL clients can fetch.
func (s *Server) absoluteURL(r *http.Request, location string) string {
	if strings.HasPrefix(location, "/") {
		return s.publicBaseURL(r) + location
	}
	return location
}
