package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/metrics"
)

// State is the lifecycle position of a voice session.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
)

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStateListener registers fn to observe every transition. fn runs while
// the controller lock is held and must not call back into the controller.
func WithStateListener(fn func(State)) Option {
	return func(c *Controller) {
		c.listener = fn
	}
}

// Controller drives one single-shot capture at a time for a chatbot instance.
// The capture resource is released exactly once on every exit from listening.
type Controller struct {
	capture   Capture
	submitter Submitter
	notifier  Notifier
	logger    *zap.Logger
	listener  func(State)

	mu         sync.Mutex
	state      State
	generation uint64
	sessionCtx context.Context
	cancel     context.CancelFunc
}

// NewController wires a controller to its collaborators. It starts idle.
func NewController(capture Capture, submitter Submitter, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		capture:   capture,
		submitter: submitter,
		notifier:  notifier,
		logger:    zap.NewNop(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a capture. Calls outside idle are rejected without touching
// the capture resource.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()

	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("voice start rejected", zap.String("state", string(state)))
		return ErrCaptureBusy
	}

	if c.capture == nil || !c.capture.Available() {
		c.mu.Unlock()
		c.notify("Voice input unavailable",
			"Speech recognition is not supported on this device. Please type your question instead.",
			SeverityWarning)
		return ErrUnsupportedCapability
	}

	c.generation++
	gen := c.generation
	captureCtx, cancel := context.WithCancel(ctx)
	c.sessionCtx = ctx
	c.cancel = cancel
	c.transition(StateListening)

	// deliver may fire from any goroutine, including inside Start.
	deliver := func(r Result) {
		go c.handleResult(gen, r)
	}

	if err := c.capture.Start(captureCtx, deliver); err != nil {
		c.generation++
		c.transition(StateErrored)
		c.release()
		c.transition(StateIdle)
		c.mu.Unlock()

		c.logger.Warn("voice capture failed to start", zap.Error(err))
		c.notify("Voice input failed", "The microphone could not be started. Please try again.", SeverityError)
		return fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}

	c.mu.Unlock()
	c.logger.Debug("voice capture started")
	return nil
}

// Cancel abandons the capture in progress. No transcript is produced and any
// late event from the abandoned capture is dropped.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateListening {
		return ErrNotListening
	}

	c.generation++
	c.release()
	c.transition(StateIdle)
	c.logger.Debug("voice capture cancelled")
	return nil
}

// Close cancels any capture in progress. Used when the owner goes away.
func (c *Controller) Close() {
	_ = c.Cancel()
}

func (c *Controller) handleResult(gen uint64, r Result) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateListening {
		c.mu.Unlock()
		c.logger.Debug("stale voice capture event dropped", zap.Uint64("generation", gen))
		return
	}

	if r.Err != nil {
		c.transition(StateErrored)
		c.release()
		c.transition(StateIdle)
		c.mu.Unlock()

		c.logger.Warn("voice capture error", zap.Error(r.Err))
		c.notify("Voice input failed", "Something went wrong while listening. Please try again or type your question.", SeverityError)
		return
	}

	c.transition(StateCompleted)
	c.release()
	ctx := c.sessionCtx
	c.mu.Unlock()

	c.forward(ctx, r.Transcript)

	c.mu.Lock()
	c.transition(StateIdle)
	c.mu.Unlock()
}

func (c *Controller) forward(ctx context.Context, transcript string) {
	if strings.TrimSpace(transcript) == "" {
		c.notify("No speech detected", "We didn't catch that. Please try again.", SeverityInfo)
		return
	}
	if c.submitter == nil {
		c.logger.Warn("voice transcript dropped, no submitter configured")
		return
	}
	if _, err := c.submitter.Submit(context.WithoutCancel(ctx), transcript); err != nil {
		c.logger.Warn("voice transcript submission failed", zap.Error(err))
		c.notify("Message not sent", "Your voice message could not be delivered. Please try again.", SeverityError)
	}
}

// release must be called with c.mu held.
func (c *Controller) release() {
	c.capture.Stop()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// transition must be called with c.mu held.
func (c *Controller) transition(next State) {
	c.state = next
	metrics.RecordVoiceTransition(string(next))
	if c.listener != nil {
		c.listener(next)
	}
}

func (c *Controller) notify(title, description string, severity Severity) {
	metrics.RecordVoiceNotice(string(severity))
	if c.notifier != nil {
		c.notifier.Notify(title, description, severity)
	}
}
