package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionSnapshot is the full view state returned to the client.
type SessionSnapshot struct {
	SessionID uuid.UUID        `json:"session_id"`
	Input     FormInput        `json:"input"`
	Result    SubmissionResult `json:"result"`
	Token     uint64           `json:"token"`
	DarkMode  bool             `json:"dark_mode"`
	LastSeen  time.Time        `json:"last_seen"`
}

type CreateSessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SelectSourceRequest struct {
	Source string `json:"source"`
}

type SetYouTubeURLRequest struct {
	URL string `json:"url"`
}

type SubmitResponse struct {
	SessionID uuid.UUID        `json:"session_id"`
	Token     uint64           `json:"token"`
	Result    SubmissionResult `json:"result"`
}
