// Package mock provides a mock TTS adapter for testing and local
// development.
package mock

import (
	"context"
	"sync"
)

// Adapter implements tts.Adapter, returning deterministic bytes
// derived from the input text so tests can assert on routing.
type Adapter struct {
	mu  sync.Mutex
	err error
	// LastReferenceVoice records the reference audio of the most
	// recent call, so tests can check voice selection.
	LastReferenceVoice []byte
}

// New creates a mock TTS adapter.
func New() *Adapter {
	return &Adapter{}
}

// SetError makes every following call fail with err (nil clears).
func (a *Adapter) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Synthesize returns pseudo-audio bytes embedding the text.
func (a *Adapter) Synthesize(_ context.Context, text, _ string, referenceVoice []byte) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	a.LastReferenceVoice = referenceVoice
	return append([]byte("RIFF#mock#"), text...), nil
}

// Ready reports the configured error state.
func (a *Adapter) Ready(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
