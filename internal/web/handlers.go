package web

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"menu-import-service/internal/domain"
	"menu-import-service/internal/web/middleware"
)

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Healthy(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"reason": "database unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleParse accepts a multipart CSV or ZIP upload, runs the parse and
// validation pipeline, and returns the new session.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: fmt.Sprintf("The upload exceeds the %d byte limit or is not a valid multipart form.", maxSize),
			Code:    "UPLOAD_TOO_LARGE",
		})
		return
	}

	businessID := middleware.BusinessID(r.Context())
	if businessID == "" {
		businessID = r.FormValue("business_id")
	}
	if businessID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "A business id is required, via the X-Business-ID header or a business_id form field.",
			Code:    "MISSING_BUSINESS",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: `The form must carry the upload in a "file" field.`,
			Code:    "MISSING_FILE",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sess, err := s.service.ParseUpload(r.Context(),
		middleware.UserID(r.Context()), businessID,
		header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// handleListSessions returns the caller's sessions, optionally filtered by
// business_id and status query parameters.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	status := domain.SessionStatus(r.URL.Query().Get("status"))
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		businessID = middleware.BusinessID(r.Context())
	}

	sessions, err := s.service.ListSessions(r.Context(), middleware.UserID(r.Context()), businessID, status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.ImportSession{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// handleGetSession returns one session with its parsed data and issues.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := s.service.GetSession(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// updateSessionRequest is the PUT body: a corrected bundle, a status change,
// or both.
type updateSessionRequest struct {
	ParsedData *domain.ParsedImportData `json:"parsedData"`
	Status     *domain.SessionStatus    `json:"status"`
}

// handleUpdateSession replaces an editable session's parsed data (triggering
// re-validation) and/or its status. The only status a caller may set directly
// is discarded; every other status is reached through its own endpoint.
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req updateSessionRequest
	if err := dec.Decode(&req); err != nil || (req.ParsedData == nil && req.Status == nil) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "The request body must carry parsedData and/or status.",
			Code:    "INVALID_BODY",
		})
		return
	}

	userID := middleware.UserID(r.Context())

	var sess *domain.ImportSession
	if req.ParsedData != nil {
		var err error
		if sess, err = s.service.UpdateSession(r.Context(), id, userID, req.ParsedData); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	if req.Status != nil {
		if *req.Status != domain.StatusDiscarded {
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:   http.StatusText(http.StatusConflict),
				Message: fmt.Sprintf("Status %q cannot be set directly; only %q is accepted.", *req.Status, domain.StatusDiscarded),
				Code:    "INVALID_STATE",
			})
			return
		}
		if err := s.service.DiscardSession(r.Context(), id, userID); err != nil {
			s.respondError(w, r, err)
			return
		}
		var err error
		if sess, err = s.service.GetSession(r.Context(), id, userID); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, sess)
}

// handleSaveSession commits a validated session to the menu tables.
func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := s.service.SaveSession(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDiscardSession abandons a session without touching the menu tables.
func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	if err := s.service.DiscardSession(r.Context(), id, middleware.UserID(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusDiscarded)})
}

// handleRollbackSession undoes a confirmed session's committed changes.
func (s *Server) handleRollbackSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := s.service.RollbackSession(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDeleteSession removes one session row.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	if err := s.service.DeleteSession(r.Context(), id, middleware.UserID(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllSessions removes every session belonging to the caller.
func (s *Server) handleDeleteAllSessions(w http.ResponseWriter, r *http.Request) {
	removed, err := s.service.DeleteAllSessions(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": removed})
}

// handleExportIssues downloads a session's validation errors as CSV.
// Warnings are included when include_warnings=1 is set.
func (s *Server) handleExportIssues(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := s.service.GetSession(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	includeWarnings := r.URL.Query().Get("include_warnings") == "1"

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="import-errors-%s.csv"`, id))
	if err := s.service.WriteIssuesCSV(w, sess, includeWarnings); err != nil {
		// Headers are already out; the response cannot be rewritten.
		slog.Error("issues csv export failed", "session_id", id, "error", err)
	}
}

// sessionID parses the sessionID URL parameter, writing a 400 on failure.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "sessionID")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: fmt.Sprintf("%q is not a valid session id.", raw),
			Code:    "INVALID_SESSION_ID",
		})
		return uuid.Nil, false
	}
	return id, true
}
