// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"errors"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"voice-scripture-service/internal/stt"
)

// Adapter implements stt.Adapter using unary Google Cloud recognition.
type Adapter struct {
	client       *speech.Client
	languageCode string
	sampleRateHz int
}

// New creates a Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, languageCode string, sampleRateHz int) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: c, languageCode: languageCode, sampleRateHz: sampleRateHz}, nil
}

// Transcribe recognizes one complete audio clip.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (stt.Result, error) {
	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(a.sampleRateHz),
			LanguageCode:    a.languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return stt.Result{}, err
	}

	var best stt.Result
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if best.Text != "" {
			best.Text += " "
		}
		best.Text += alt.Transcript
		if float64(alt.Confidence) > best.Confidence {
			best.Confidence = float64(alt.Confidence)
		}
	}
	return best, nil
}

// Ready reports whether the client was constructed.
func (a *Adapter) Ready(context.Context) error {
	if a.client == nil {
		return errors.New("speech client not initialized")
	}
	return nil
}

// Close releases the underlying client connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}
