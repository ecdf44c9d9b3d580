package web

// errors.go provides unified error response handling for the API.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. statusFor picks the HTTP status from the error's type
//  4. core.MapError supplies the user-facing message, action and code
//  5. Server errors are logged with the technical detail and request id;
//     client errors are logged at debug level only
//
// Clients never see driver or filesystem error text.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/Inventory/internal/core"
	"github.com/JonMunkholm/Inventory/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError writes err as an ErrorResponse with the status statusFor picks.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := userMessage(err)

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request error",
			"path", r.URL.Path,
			"method", r.Method,
			"status", status,
			"error", err.Error(),
			"code", msg.Code,
		)
	} else {
		logger.Debug("request rejected",
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
			"code", msg.Code,
		)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	respondErrorJSON(w, msg, status)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	var malformed *malformedBodyError
	switch {
	case core.IsValidation(err), errors.Is(err, core.ErrConflict), core.IsUploadRejected(err):
		return http.StatusBadRequest
	case errors.As(err, &maxErr), errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case core.IsStorage(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// userMessage adds the web-only error types to core.MapError.
func userMessage(err error) core.UserMessage {
	var maxErr *http.MaxBytesError
	var malformed *malformedBodyError
	switch {
	case errors.As(err, &maxErr):
		return core.MapError(core.RejectUpload(core.CodeFileTooLarge, "Request exceeds the size limit"))
	case errors.As(err, &malformed):
		return core.UserMessage{
			Message: "Invalid request body",
			Action:  "Send a JSON object with product fields",
			Code:    "VAL002",
		}
	}
	return core.MapError(err)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondRateLimited is the rate limiter's rejection handler.
func respondRateLimited(w http.ResponseWriter, _ *http.Request) {
	respondErrorJSON(w, core.UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}, http.StatusTooManyRequests)
}

// respondProductNotFound answers ids that are not integers. They cannot name
// a product, so they are reported like an unknown id.
func respondProductNotFound(w http.ResponseWriter, _ *http.Request) {
	respondErrorJSON(w, core.MapError(core.ErrNotFound), http.StatusNotFound)
}

// respondRouteNotFound answers paths no route matches.
func respondRouteNotFound(w http.ResponseWriter, _ *http.Request) {
	respondErrorJSON(w, core.UserMessage{Message: "Not found", Code: "NF002"}, http.StatusNotFound)
}

// respondMethodNotAllowed answers a known path with the wrong method.
func respondMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondErrorJSON(w, core.UserMessage{Message: "Method not allowed", Code: "NF003"}, http.StatusMethodNotAllowed)
}
