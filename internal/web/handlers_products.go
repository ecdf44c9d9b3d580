package web

import (
	"bytes"
	"net/http"

	"github.com/JonMunkholm/Inventory/internal/core"
	"github.com/JonMunkholm/Inventory/internal/logging"
)

// handleBanner answers the root path so a browser or probe can see the
// backend is up.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Backend running successfully"})
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	limiter := s.service.Limiter()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":         "ok",
		"activeImports":  limiter.Active(),
		"importCapacity": limiter.Capacity(),
	})
}

// handleListProducts returns products filtered by ?category= (exact) and
// ?search= (name substring, any case).
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := s.service.ListProducts(r.Context(), core.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, products)
}

// handleSearchProducts returns products whose name contains ?name=.
func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.SearchProducts(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, products)
}

// handleGetProduct returns one product.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		respondProductNotFound(w, r)
		return
	}
	p, err := s.service.GetProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// handleCreateProduct stores a new product and returns it with 201.
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := decodeProduct(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.service.CreateProduct(r.Context(), req.fields())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("product created", "product_id", p.ID, "name", p.Name)
	writeJSON(w, r, http.StatusCreated, p)
}

// handleUpdateProduct applies the fields present in the body. A stock change
// is recorded under changedBy, the X-Changed-By header, or "system".
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		respondProductNotFound(w, r)
		return
	}
	req, err := decodeProduct(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.service.UpdateProduct(r.Context(), id, req.update())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// handleDeleteProduct removes a product; its history stays.
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		respondProductNotFound(w, r)
		return
	}
	if err := s.service.DeleteProduct(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("product deleted", "product_id", id)
	writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// handleProductHistory returns stock changes for a product, newest first.
// Unknown and deleted ids return whatever history exists, possibly none.
func (s *Server) handleProductHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeJSON(w, r, http.StatusOK, []core.StockChange{})
		return
	}
	history, err := s.service.ProductHistory(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

// handleExportProducts downloads every product as products.csv.
// The file is built in memory first so a store failure can still be
// reported as JSON.
func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportProducts(r.Context(), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}
