// Package mock provides a mock STT adapter for testing and local
// development without model credentials.
package mock

import (
	"context"
	"sync"

	"voice-scripture-service/internal/stt"
)

// DefaultScript provides sample transcripts cycled by a fresh adapter,
// mirroring one wake→verse exchange.
var DefaultScript = []stt.Result{
	{Text: "헤이 은석", Confidence: 0.96},
	{Text: "요한복음 3장 16절", Confidence: 0.94},
	{Text: "창세기 1장 1절", Confidence: 0.95},
	{Text: "시편 23편 1절", Confidence: 0.93},
}

// Adapter implements stt.Adapter with scripted responses.
type Adapter struct {
	mu     sync.Mutex
	script []stt.Result
	next   int
	err    error
}

// New creates a mock adapter. With no arguments it cycles
// DefaultScript; otherwise it cycles the given results.
func New(script ...stt.Result) *Adapter {
	if len(script) == 0 {
		script = DefaultScript
	}
	return &Adapter{script: script}
}

// SetError makes every following call fail with err (nil clears).
func (a *Adapter) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Transcribe returns the next scripted result.
func (a *Adapter) Transcribe(_ context.Context, _ []byte) (stt.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return stt.Result{}, a.err
	}
	r := a.script[a.next%len(a.script)]
	a.next++
	return r, nil
}

// Ready reports the configured error state.
func (a *Adapter) Ready(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
