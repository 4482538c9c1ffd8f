package services

import (
	"context"
	"log"

	"github.com/google/uuid"

	"immerse-backend/internal/models"
	"immerse-backend/internal/submission"
)

type attemptStore interface {
	Create(ctx context.Context, a *models.Attempt) error
	Resolve(ctx context.Context, sessionID uuid.UUID, token uint64, status models.ResultState, summary, errorDetail *string) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Attempt, error)
}

// HistoryRecorder persists every submission and its outcome. Storage errors are
// logged and never affect the submission itself.
type HistoryRecorder struct {
	store attemptStore
}

func NewHistoryRecorder(store attemptStore) *HistoryRecorder {
	return &HistoryRecorder{store: store}
}

func (h *HistoryRecorder) OnTransition(ctx context.Context, t submission.Transition) {
	switch t.Result.State {
	case models.StateLoading:
		a := &models.Attempt{
			SessionID:  t.SessionID,
			Token:      t.Token,
			Source:     t.Input.Source,
			Descriptor: t.Input.Descriptor(),
		}
		if err := h.store.Create(ctx, a); err != nil {
			log.Printf("failed to record attempt %d for session %s: %v", t.Token, t.SessionID, err)
		}

	case models.StateSuccess, models.StateFailure:
		var summary, detail *string
		if t.Result.State == models.StateSuccess {
			summary = &t.Result.Summary
		}
		if t.Cause != nil {
			msg := t.Cause.Error()
			detail = &msg
		}
		if err := h.store.Resolve(ctx, t.SessionID, t.Token, t.Result.State, summary, detail); err != nil {
			log.Printf("failed to record outcome of attempt %d for session %s: %v", t.Token, t.SessionID, err)
		}
	}
}

// List returns the most recent attempts for a session, newest first.
func (h *HistoryRecorder) List(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Attempt, error) {
	return h.store.ListBySession(ctx, sessionID, limit)
}
