package submission

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"immerse-backend/internal/models"
)

// Session is one browser's form: its input, its theme preference and its own
// controller. Input may change at any time; a submit works on a snapshot.
type Session struct {
	ID         uuid.UUID
	controller *Controller
	cancel     context.CancelFunc

	mu       sync.Mutex
	input    models.FormInput
	darkMode bool
	lastSeen time.Time

	// storage keys held by submissions that have not resolved yet, and
	// replaced files waiting for those submissions
	pinned    map[string]int
	replaced  map[string]bool
	onRelease func(key string)
}

func (s *Session) SelectSource(kind models.SourceKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.Source = kind
	s.lastSeen = time.Now()
}

func (s *Session) SetYouTubeURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.YouTubeURL = url
	s.lastSeen = time.Now()
}

// AttachFile replaces the selected file. The replaced file is released right
// away unless an in-flight submission still reads it, in which case it is
// released when that submission resolves.
func (s *Session) AttachFile(f *models.VideoFile) {
	s.mu.Lock()
	prev := fileKey(s.input)
	s.input.File = f
	s.lastSeen = time.Now()

	release := ""
	if prev != "" {
		if s.pinned[prev] > 0 {
			s.replaced[prev] = true
		} else {
			release = prev
		}
	}
	s.mu.Unlock()

	s.release(release)
}

// ToggleDarkMode flips the theme preference and returns the new value.
func (s *Session) ToggleDarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	s.lastSeen = time.Now()
	return s.darkMode
}

func (s *Session) Input() models.FormInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Clone()
}

// Submit snapshots the current input and hands it to the controller.
func (s *Session) Submit() (uint64, error) {
	s.mu.Lock()
	input := s.input.Clone()
	s.lastSeen = time.Now()
	key := fileKey(input)
	if key != "" {
		s.pinned[key]++
	}
	s.mu.Unlock()

	token, err := s.controller.Submit(input)
	if err != nil {
		s.unpin(key)
	}
	return token, err
}

func (s *Session) Result() (models.SubmissionResult, uint64) {
	return s.controller.Snapshot()
}

func (s *Session) Snapshot() models.SessionSnapshot {
	result, token := s.controller.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionSnapshot{
		SessionID: s.ID,
		Input:     s.input.Clone(),
		Result:    result,
		Token:     token,
		DarkMode:  s.darkMode,
		LastSeen:  s.lastSeen,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// OnTransition unpins the file a resolved submission was reading.
func (s *Session) OnTransition(ctx context.Context, t Transition) {
	if t.Result.Resolved() {
		s.unpin(fileKey(t.Input))
	}
}

func (s *Session) unpin(key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	release := ""
	if s.pinned[key]--; s.pinned[key] <= 0 {
		delete(s.pinned, key)
		if s.replaced[key] {
			delete(s.replaced, key)
			release = key
		}
	}
	s.mu.Unlock()

	s.release(release)
}

func (s *Session) release(key string) {
	if key != "" && s.onRelease != nil {
		s.onRelease(key)
	}
}

func fileKey(in models.FormInput) string {
	if in.File == nil {
		return ""
	}
	return in.File.StorageKey
}
