package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"immerse-backend/internal/models"
	"immerse-backend/internal/submission"
)

func TestPlaceholderProcessor_ReturnsFixedSummary(t *testing.T) {
	p := NewPlaceholderProcessor(5 * time.Millisecond)

	inputs := []models.FormInput{
		{Source: models.SourceUpload, File: &models.VideoFile{Name: "clip.mp4"}},
		{Source: models.SourceYouTube, YouTubeURL: "https://www.youtube.com/watch?v=abc123"},
		{Source: models.SourceUpload},
	}
	for _, in := range inputs {
		got, err := p.Process(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != PlaceholderSummary {
			t.Fatalf("expected placeholder summary, got %q", got)
		}
	}
}

func TestPlaceholderProcessor_HonorsCancellation(t *testing.T) {
	p := NewPlaceholderProcessor(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Process(ctx, models.FormInput{Source: models.SourceUpload}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPlaceholderProcessor_SubmissionScenarios(t *testing.T) {
	tests := []struct {
		name  string
		input models.FormInput
	}{
		{"upload clip.mp4", models.FormInput{
			Source: models.SourceUpload,
			File:   &models.VideoFile{Name: "clip.mp4", Size: 2048, MimeType: "video/mp4"},
		}},
		{"youtube url", models.FormInput{
			Source:     models.SourceYouTube,
			YouTubeURL: "https://www.youtube.com/watch?v=abc123",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			done := make(chan submission.Transition, 1)
			c := submission.NewController(context.Background(), uuid.New(), NewPlaceholderProcessor(20*time.Millisecond), submission.Options{
				Listeners: []submission.Listener{submission.ListenerFunc(func(ctx context.Context, tr submission.Transition) {
					if tr.Result.Resolved() {
						done <- tr
					}
				})},
			})

			if _, err := c.Submit(tc.input); err != nil {
				t.Fatalf("unexpected submit error: %v", err)
			}
			if result, _ := c.Snapshot(); result.State != models.StateLoading {
				t.Fatalf("expected loading immediately, got %s", result.State)
			}

			select {
			case tr := <-done:
				if tr.Result.State != models.StateSuccess || tr.Result.Summary != PlaceholderSummary {
					t.Fatalf("unexpected result %+v", tr.Result)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for resolution")
			}
		})
	}
}
