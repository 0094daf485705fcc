// Package tts defines the interface for text-to-speech adapters.
package tts

import "context"

// Adapter defines the interface for TTS providers.
// Synthesize is long-running and must be called without holding any
// lock.
type Adapter interface {
	// Synthesize renders text to audio bytes in the given language,
	// cloning the voice of referenceVoice when non-nil.
	Synthesize(ctx context.Context, text, languageCode string, referenceVoice []byte) ([]byte, error)

	// Ready reports whether the provider can serve requests.
	Ready(ctx context.Context) error
}
