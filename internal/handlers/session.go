package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"immerse-backend/internal/middleware"
	"immerse-backend/internal/models"
	"immerse-backend/internal/services"
	"immerse-backend/internal/submission"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	// room for the multipart envelope around the file itself
	multipartOverhead = 1 << 20
)

type sessionRegistry interface {
	Create() *submission.Session
	Get(id uuid.UUID) (*submission.Session, error)
	Remove(id uuid.UUID) bool
}

type videoStore interface {
	Save(sessionID uuid.UUID, filename string, r io.Reader, maxBytes int64) (string, int64, error)
}

// HistoryLister returns recorded attempts for a session, newest first.
type HistoryLister interface {
	List(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Attempt, error)
}

type tokenIssuer interface {
	GenerateSessionToken(sessionID uuid.UUID) (string, time.Time, error)
}

type SessionHandler struct {
	sessions  sessionRegistry
	videos    videoStore
	history   HistoryLister
	tokens    tokenIssuer
	maxUpload int64
}

// NewSessionHandler wires the session endpoints. history may be nil when no
// database is configured.
func NewSessionHandler(sessions sessionRegistry, videos videoStore, history HistoryLister, tokens tokenIssuer, maxUpload int64) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		videos:    videos,
		history:   history,
		tokens:    tokens,
		maxUpload: maxUpload,
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()

	token, expiresAt, err := h.tokens.GenerateSessionToken(s.ID)
	if err != nil {
		h.sessions.Remove(s.ID)
		log.Printf("failed to sign session token: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		SessionID: s.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Remove(middleware.GetSessionID(r.Context())) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SelectSource(w http.ResponseWriter, r *http.Request) {
	var req models.SelectSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	kind, err := models.ParseSourceKind(req.Source)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid source",
			map[string]string{"source": "must be one of: upload, youtube"}, r))
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.SelectSource(kind)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) SetYouTubeURL(w http.ResponseWriter, r *http.Request) {
	var req models.SetYouTubeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.SetYouTubeURL(req.URL)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if r.ContentLength > h.maxUpload+multipartOverhead {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds upload limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds upload limit", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	declared := header.Header.Get("Content-Type")
	if !services.IsAcceptedVideo(declared, header.Filename) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "File type not supported", r))
		return
	}

	key, size, err := h.videos.Save(s.ID, header.Filename, file, h.maxUpload)
	if err != nil {
		if errors.Is(err, services.ErrFileTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds upload limit", r))
			return
		}
		log.Printf("failed to store upload for session %s: %v", s.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	s.AttachFile(&models.VideoFile{
		Name:       header.Filename,
		Size:       size,
		MimeType:   services.VideoMimeType(declared, header.Filename),
		StorageKey: key,
	})

	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ToggleDarkMode()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	token, err := s.Submit()
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", verr.Message,
				map[string]string{verr.Field: verr.Message}, r))
		case errors.Is(err, submission.ErrSubmissionInFlight):
			writeJSON(w, http.StatusConflict, errorResp("SUBMISSION_IN_PROGRESS", "A video is already being processed", r))
		default:
			log.Printf("submit failed for session %s: %v", s.ID, err)
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to submit", r))
		}
		return
	}

	writeJSON(w, http.StatusAccepted, models.SubmitResponse{
		SessionID: s.ID,
		Token:     token,
		Result:    models.LoadingResult(),
	})
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a positive integer", r))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	attempts := []*models.Attempt{}
	if h.history != nil {
		list, err := h.history.List(r.Context(), s.ID, limit)
		if err != nil {
			log.Printf("failed to list attempts for session %s: %v", s.ID, err)
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load history", r))
			return
		}
		if list != nil {
			attempts = list
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attempts": attempts,
	})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*submission.Session, bool) {
	s, err := h.sessions.Get(middleware.GetSessionID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}
	return s, true
}
