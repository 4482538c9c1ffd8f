package submission

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"immerse-backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type RegistryConfig struct {
	Processor ProcessingService
	Executor  Executor
	Timeout   time.Duration
	TTL       time.Duration
	Listeners []Listener

	// OnEvict runs after a session has been removed and its processing cancelled.
	OnEvict func(s *Session)

	// OnFileReleased runs once a replaced upload is no longer read by any
	// submission of its session.
	OnFileReleased func(key string)
}

// Registry holds the live sessions. Sessions unused for longer than TTL are
// evicted by the janitor started with Start.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	cfg      RegistryConfig
	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewRegistry(cfg RegistryConfig) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

func (r *Registry) Create() *Session {
	id := uuid.New()
	ctx, cancel := context.WithCancel(r.ctx)

	s := &Session{
		ID:        id,
		cancel:    cancel,
		input:     models.NewFormInput(),
		lastSeen:  time.Now(),
		pinned:    make(map[string]int),
		replaced:  make(map[string]bool),
		onRelease: r.cfg.OnFileReleased,
	}

	listeners := make([]Listener, 0, len(r.cfg.Listeners)+1)
	listeners = append(listeners, r.cfg.Listeners...)
	listeners = append(listeners, s)

	s.controller = NewController(ctx, id, r.cfg.Processor, Options{
		Executor:  r.cfg.Executor,
		Timeout:   r.cfg.Timeout,
		Listeners: listeners,
	})

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	return s
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(time.Now())
	return s, nil
}

// Remove evicts a session and cancels its in-flight processing.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.evict(s)
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts every session idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.cfg.TTL <= 0 {
		return 0
	}

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince(now) > r.cfg.TTL {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.evict(s)
	}
	return len(expired)
}

func (r *Registry) Start() {
	if r.cfg.TTL <= 0 {
		return
	}

	interval := r.cfg.TTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopChan:
				return
			case now := <-ticker.C:
				if n := r.Sweep(now); n > 0 {
					log.Printf("Evicted %d idle sessions", n)
				}
			}
		}
	}()
}

// Stop halts the janitor and cancels processing for every session.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		r.cancel()
	})
}

func (r *Registry) evict(s *Session) {
	s.cancel()
	if r.cfg.OnEvict != nil {
		r.cfg.OnEvict(s)
	}
}
