package submission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"immerse-backend/internal/models"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrEmptySummary       = errors.New("processing returned an empty summary")
)

// ProcessingService turns a video source into a summary.
type ProcessingService interface {
	Process(ctx context.Context, input models.FormInput) (string, error)
}

// ProcessingFunc adapts a plain function to ProcessingService.
type ProcessingFunc func(ctx context.Context, input models.FormInput) (string, error)

func (f ProcessingFunc) Process(ctx context.Context, input models.FormInput) (string, error) {
	return f(ctx, input)
}

// Executor schedules a processing task. An error means the task will never run.
type Executor interface {
	Execute(task func()) error
}

type ExecutorFunc func(task func()) error

func (f ExecutorFunc) Execute(task func()) error {
	return f(task)
}

// GoExecutor runs every task on its own goroutine.
var GoExecutor = ExecutorFunc(func(task func()) error {
	go task()
	return nil
})

// Transition describes one change of a controller's result. Cause carries the
// underlying processing error for failures and is never shown to the user.
type Transition struct {
	SessionID uuid.UUID
	Token     uint64
	Input     models.FormInput
	Result    models.SubmissionResult
	Cause     error
	At        time.Time
}

// Listener observes result transitions. Listeners are called one at a time, in
// transition order, and must not submit on the same controller.
type Listener interface {
	OnTransition(ctx context.Context, t Transition)
}

type ListenerFunc func(ctx context.Context, t Transition)

func (f ListenerFunc) OnTransition(ctx context.Context, t Transition) {
	f(ctx, t)
}

type Options struct {
	Executor  Executor
	Timeout   time.Duration // 0 disables the processing timeout
	Listeners []Listener
}

// Controller owns one form's SubmissionResult and drives
// idle -> loading -> success|failure. Every submit issues a new token; a
// resolution is applied only for the latest token while loading.
type Controller struct {
	ctx       context.Context
	sessionID uuid.UUID
	processor ProcessingService
	executor  Executor
	timeout   time.Duration
	listeners []Listener

	mu     sync.Mutex
	result models.SubmissionResult
	token  uint64

	// held while listeners run so they observe transitions in order
	notifyMu sync.Mutex
}

// NewController creates a controller in the idle state. Processing runs under ctx,
// so cancelling it aborts any in-flight call.
func NewController(ctx context.Context, sessionID uuid.UUID, processor ProcessingService, opts Options) *Controller {
	executor := opts.Executor
	if executor == nil {
		executor = GoExecutor
	}
	return &Controller{
		ctx:       ctx,
		sessionID: sessionID,
		processor: processor,
		executor:  executor,
		timeout:   opts.Timeout,
		listeners: opts.Listeners,
		result:    models.IdleResult(),
	}
}

// Submit validates input, moves the result to loading before returning and
// schedules processing of the given snapshot. It returns the request token.
func (c *Controller) Submit(input models.FormInput) (uint64, error) {
	if err := input.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.result.Loading() {
		c.mu.Unlock()
		return 0, ErrSubmissionInFlight
	}
	c.token++
	token := c.token
	c.result = models.LoadingResult()
	snapshot := input.Clone()

	c.notifyMu.Lock()
	c.mu.Unlock()
	c.emit(Transition{
		SessionID: c.sessionID,
		Token:     token,
		Input:     snapshot,
		Result:    models.LoadingResult(),
		At:        time.Now(),
	})
	c.notifyMu.Unlock()

	if err := c.executor.Execute(func() { c.process(token, snapshot) }); err != nil {
		c.resolve(token, snapshot, "", fmt.Errorf("failed to schedule processing: %w", err))
	}

	return token, nil
}

// Snapshot returns the current result and the latest issued token.
func (c *Controller) Snapshot() (models.SubmissionResult, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.token
}

func (c *Controller) process(token uint64, input models.FormInput) {
	ctx := c.ctx
	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()

	summary, err := c.call(ctx, input)
	if err == nil && strings.TrimSpace(summary) == "" {
		err = ErrEmptySummary
	}
	c.resolve(token, input, summary, err)
}

func (c *Controller) call(ctx context.Context, input models.FormInput) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing panicked: %v", r)
		}
	}()
	return c.processor.Process(ctx, input)
}

// resolve applies an outcome for token. It reports false when the outcome is stale.
func (c *Controller) resolve(token uint64, input models.FormInput, summary string, cause error) bool {
	c.mu.Lock()
	if token != c.token || !c.result.Loading() {
		latest := c.token
		c.mu.Unlock()
		log.Printf("Session %s: dropping stale resolution for token %d (latest %d)", c.sessionID, token, latest)
		return false
	}

	if cause != nil {
		c.result = models.FailureResult()
		log.Printf("Session %s: submission %d failed: %v", c.sessionID, token, cause)
	} else {
		c.result = models.SuccessResult(summary)
	}
	result := c.result

	c.notifyMu.Lock()
	c.mu.Unlock()
	c.emit(Transition{
		SessionID: c.sessionID,
		Token:     token,
		Input:     input,
		Result:    result,
		Cause:     cause,
		At:        time.Now(),
	})
	c.notifyMu.Unlock()

	return true
}

func (c *Controller) emit(t Transition) {
	ctx := context.WithoutCancel(c.ctx)
	for _, l := range c.listeners {
		l.OnTransition(ctx, t)
	}
}
