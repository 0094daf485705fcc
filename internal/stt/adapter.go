// Package stt defines the interface for speech-to-text adapters.
package stt

import "context"

// Result is one transcription outcome.
type Result struct {
	// Text is the recognized transcript.
	Text string
	// Confidence in [0,1] as reported by the provider; 0 when the
	// provider does not score transcripts.
	Confidence float64
}

// Adapter defines the interface for STT providers.
// Transcribe is long-running (hundreds of milliseconds to seconds)
// and must be called without holding any lock.
type Adapter interface {
	// Transcribe converts one complete audio clip into text.
	Transcribe(ctx context.Context, audio []byte) (Result, error)

	// Ready reports whether the provider can serve requests.
	Ready(ctx context.Context) error
}
