package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers call respondError with whatever the service returned; the error is
// classified here, logged with its request ID, and written as a JSON body
// with a stable machine-readable code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"menu-import-service/internal/domain"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// respondError classifies err, logs it, and writes the JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classifyError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	})
}

// classifyError maps service errors to an HTTP status, a stable code, and a
// user-facing message.
func classifyError(err error) (status int, code, message string) {
	var ingestErr *domain.IngestError
	var transitionErr *domain.TransitionError
	var resolutionErr *domain.ResolutionError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND",
			"No import session exists with that id, or it belongs to another user."

	case errors.Is(err, domain.ErrSaveConflict):
		return http.StatusConflict, "SAVE_CONFLICT",
			"The session was changed by another request. Reload it and try again."

	case errors.Is(err, domain.ErrNoRollbackData):
		return http.StatusConflict, "NO_ROLLBACK_DATA",
			"This session has no recorded changes to undo."

	case errors.As(err, &transitionErr):
		return http.StatusConflict, "INVALID_STATE", transitionErr.Error() + "."

	case errors.As(err, &ingestErr):
		return http.StatusBadRequest, "INVALID_UPLOAD",
			"The upload could not be read: " + ingestErr.Reason + "."

	case errors.As(err, &resolutionErr):
		return http.StatusUnprocessableEntity, "UNRESOLVED_REFERENCE", resolutionErr.Error() + "."

	default:
		return http.StatusInternalServerError, "INTERNAL",
			"Something went wrong processing the request. Try again or contact support."
	}
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
