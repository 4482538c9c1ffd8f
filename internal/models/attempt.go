package models

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one recorded submission. ErrorDetail keeps the real failure cause for
// operators; it is not part of the JSON view.
type Attempt struct {
	ID          uuid.UUID   `json:"id"`
	SessionID   uuid.UUID   `json:"session_id"`
	Token       uint64      `json:"token"`
	Source      SourceKind  `json:"source"`
	Descriptor  string      `json:"descriptor"`
	Status      ResultState `json:"status"`
	Summary     *string     `json:"summary"`
	ErrorDetail *string     `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	ResolvedAt  *time.Time  `json:"resolved_at"`
}
