package voice

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedCapability = errors.New("speech recognition is not available")
	ErrCaptureFailure        = errors.New("speech capture failed")
	ErrCaptureBusy           = errors.New("a voice capture is already in progress")
	ErrNotListening          = errors.New("no voice capture in progress")
)

// Result is the single event a capture emits: a final transcript or an error.
type Result struct {
	Transcript string
	Err        error
}

// Capture is the platform speech-to-text capability. Start acquires the
// underlying resource and must eventually call deliver exactly once unless
// Stop is called first. Stop releases the resource.
type Capture interface {
	Available() bool
	Start(ctx context.Context, deliver func(Result)) error
	Stop()
}

// Submitter receives completed transcripts, normally the conversation.
type Submitter interface {
	Submit(ctx context.Context, text string) (string, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, text string) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
