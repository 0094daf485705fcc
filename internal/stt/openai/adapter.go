// Package openai provides a Whisper-based STT adapter using the
// OpenAI API.
package openai

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/openai/openai-go/v3"

	"voice-scripture-service/internal/stt"
)

// Adapter implements stt.Adapter using the OpenAI transcription API.
type Adapter struct {
	client   openai.Client
	language string
	hasKey   bool
}

// New creates an OpenAI STT adapter. The client reads OPENAI_API_KEY
// from the environment; its presence is recorded for readiness checks.
func New(language string) *Adapter {
	return &Adapter{
		client:   openai.NewClient(),
		language: language,
		hasKey:   os.Getenv("OPENAI_API_KEY") != "",
	}
}

// Transcribe sends the audio clip to Whisper.
// Whisper does not report a transcript-level confidence; the result
// carries 0, meaning unscored.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (stt.Result, error) {
	resp, err := a.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:    openai.AudioModelWhisper1,
		File:     openai.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
		Language: openai.String(a.language),
	})
	if err != nil {
		return stt.Result{}, err
	}
	return stt.Result{Text: resp.Text}, nil
}

// Ready reports whether an API key is configured.
func (a *Adapter) Ready(context.Context) error {
	if !a.hasKey {
		return errors.New("OPENAI_API_KEY not set")
	}
	return nil
}
