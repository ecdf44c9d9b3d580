package web

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/JonMunkholm/Inventory/internal/core"
	"github.com/JonMunkholm/Inventory/internal/logging"
	"github.com/JonMunkholm/Inventory/internal/media"
)

const (
	// multipartOverhead covers boundaries and headers around the file part.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of a form is buffered before spilling to disk.
	multipartMemory = 1 << 20
)

// formFile parses a multipart body capped at limit+overhead and returns the
// named file part. The caller must close the file and call cleanup.
func formFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (multipart.File, *multipart.FileHeader, func(), error) {
	noop := func() {}
	maxBody := limit + multipartOverhead
	if r.ContentLength > maxBody {
		return nil, nil, noop, &http.MaxBytesError{Limit: maxBody}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, noop, err
		}
		return nil, nil, noop, core.RejectUpload(core.CodeNoFile, "No file uploaded")
	}
	cleanup := func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.FromContext(r.Context()).Warn("multipart cleanup failed", "error", err)
		}
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		cleanup()
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, noop, core.RejectUpload(core.CodeNoFile, "No file uploaded")
		}
		return nil, nil, noop, err
	}
	return file, header, cleanup, nil
}

// handleUploadImage stores the "image" part and returns its public URL.
// Rejected files are never written.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Upload.ImageMaxSize
	file, header, cleanup, err := formFile(w, r, "image", limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cleanup()
	defer file.Close()

	upload := media.FromFileHeader(header)
	if err := media.ValidateImage(upload, limit); err != nil {
		s.respondError(w, r, err)
		return
	}

	name := media.ImageName(upload.Filename, s.now())
	location, err := s.images.Save(r.Context(), name, upload.ContentType, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("image uploaded",
		"file", name,
		"size", upload.Size,
		"content_type", upload.ContentType,
	)
	writeJSON(w, r, http.StatusOK, map[string]string{"imageUrl": s.absoluteURL(r, location)})
}

// handleImportProducts merges the "csvFile" part into the catalogue. The file
// is staged in the upload directory for the duration of the import and
// removed afterwards whatever the outcome.
func (s *Server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Upload.ImportMaxSize
	file, header, cleanup, err := formFile(w, r, "csvFile", limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cleanup()
	defer file.Close()

	upload := media.FromFileHeader(header)
	if err := media.ValidateImport(upload, limit); err != nil {
		s.respondError(w, r, err)
		return
	}

	logger := logging.FromContext(r.Context())
	path, err := s.staging.Stage(r.Context(), media.ImportName(upload.Filename, s.now()), file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer func() {
		if err := s.staging.Discard(path); err != nil {
			logger.Warn("failed to remove staged import", "path", path, "error", err)
		}
	}()

	staged, err := os.Open(path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer staged.Close()

	result, err := s.service.ImportProducts(r.Context(), staged)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
