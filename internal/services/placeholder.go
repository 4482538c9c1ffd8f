package services

import (
	"context"
	"time"

	"immerse-backend/internal/models"
)

// PlaceholderSummary is returned by PlaceholderProcessor for every input.
const PlaceholderSummary = "This is where your AI model's summary will appear..."

// PlaceholderProcessor stands in for a real model: it waits Delay and returns
// PlaceholderSummary regardless of the source.
type PlaceholderProcessor struct {
	Delay time.Duration
}

func NewPlaceholderProcessor(delay time.Duration) *PlaceholderProcessor {
	return &PlaceholderProcessor{Delay: delay}
}

func (p *PlaceholderProcessor) Process(ctx context.Context, input models.FormInput) (string, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return PlaceholderSummary, nil
}
