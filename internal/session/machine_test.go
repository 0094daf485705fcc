package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"voice-scripture-service/internal/config"
	embedmock "voice-scripture-service/internal/embed/mock"
	"voice-scripture-service/internal/events"
	"voice-scripture-service/internal/fault"
	"voice-scripture-service/internal/speaker"
	"voice-scripture-service/internal/stt"
	sttmock "voice-scripture-service/internal/stt/mock"
	ttsmock "voice-scripture-service/internal/tts/mock"
	"voice-scripture-service/internal/verse/versetest"
)

func testConfig() *config.Config {
	return &config.Config{
		Wake: config.WakeConfig{
			Phrase:   "헤이 은석",
			Variants: []string{"에이 은석", "헤이 은서"},
			Greeting: "네, 안녕하세요! 찾으시는 성경 구절을 말씀해주세요.",
		},
		Parser:  config.ParserConfig{ConfidenceFloor: 0.5},
		Speaker: config.SpeakerConfig{Threshold: 0.18, ReferenceVoice: "insuk"},
		Session: config.SessionConfig{Timeout: time.Minute, MaxReprompts: 2},
		TTS:     config.TTSConfig{LanguageCode: "ko"},
		Kafka:   config.KafkaConfig{TopicWake: "interaction.wake", TopicAnswer: "interaction.answer"},
	}
}

func newTestMachine(t *testing.T, cfg *config.Config, script ...stt.Result) (*Machine, *speaker.Gate, *sttmock.Adapter, *ttsmock.Adapter) {
	t.Helper()
	gate := speaker.NewGate(embedmock.New(192), cfg.Speaker.Threshold)
	sttAdapter := sttmock.New(script...)
	ttsAdapter := ttsmock.New()
	publisher := events.New(&events.Config{Enabled: false})
	m := NewMachine(cfg, versetest.Corpus(), gate, sttAdapter, ttsAdapter, publisher)
	t.Cleanup(m.Close)
	return m, gate, sttAdapter, ttsAdapter
}

func TestMachine_Wake_OpensSession(t *testing.T) {
	m, _, _, _ := newTestMachine(t, testConfig(), stt.Result{Text: "헤이 은석", Confidence: 0.96})

	r, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if !r.Matched {
		t.Error("expected wake phrase to match")
	}
	if r.SessionID == "" {
		t.Error("expected a session ID")
	}
	if r.Speaker != speaker.Unknown {
		t.Errorf("Speaker = %q, want %q with empty catalog", r.Speaker, speaker.Unknown)
	}
	if r.Greeting == "" || len(r.Audio) == 0 {
		t.Error("expected a spoken greeting")
	}
	if m.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions() = %d, want 1", m.ActiveSessions())
	}
}

func TestMachine_Wake_NotMatched(t *testing.T) {
	m, _, _, _ := newTestMachine(t, testConfig(), stt.Result{Text: "오늘 날씨 어때", Confidence: 0.9})

	r, err := m.Wake(context.Background(), []byte("clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if r.Matched {
		t.Error("expected no wake match")
	}
	if r.SessionID != "" {
		t.Error("expected no session for unmatched wake")
	}
	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", m.ActiveSessions())
	}
}

func TestMachine_Wake_KnownSpeakerGreeting(t *testing.T) {
	m, gate, _, _ := newTestMachine(t, testConfig(), stt.Result{Text: "헤이 은석", Confidence: 0.96})
	clip := []byte("insuk voice clip")
	if err := gate.Enroll(context.Background(), "insuk", [][]byte{clip}); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	r, err := m.Wake(context.Background(), clip)
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if r.Speaker != "insuk" {
		t.Errorf("Speaker = %q, want insuk", r.Speaker)
	}
	if want := "네, insuk님! 찾으시는 성경 구절을 말씀해주세요."; r.Greeting != want {
		t.Errorf("Greeting = %q, want %q", r.Greeting, want)
	}
}

func TestMachine_Wake_IgnoredSpeaker(t *testing.T) {
	cfg := testConfig()
	cfg.Speaker.IgnoreSpeakers = []string{"hyanguk"}
	m, gate, _, _ := newTestMachine(t, cfg, stt.Result{Text: "헤이 은석", Confidence: 0.96})
	clip := []byte("hyanguk voice clip")
	if err := gate.Enroll(context.Background(), "hyanguk", [][]byte{clip}); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	r, err := m.Wake(context.Background(), clip)
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if !r.Matched || !r.Ignored {
		t.Errorf("result = %+v, want matched and ignored", r)
	}
	if r.SessionID != "" {
		t.Error("expected no session for ignored speaker")
	}
	if len(r.Audio) == 0 {
		t.Error("expected a spoken dismissal")
	}
	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", m.ActiveSessions())
	}
}

func TestMachine_WakeMatched(t *testing.T) {
	m, _, _, _ := newTestMachine(t, testConfig())

	tests := []struct {
		transcript string
		want       bool
	}{
		{"헤이 은석", true},
		{"헤이은석", true},
		{"에이 은석", true},   // configured variant
		{"패이 은석", true},   // one edit away
		{"헤이 은석 안녕", true}, // wake phrase embedded
		{"안녕하세요", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.wakeMatched(tt.transcript); got != tt.want {
			t.Errorf("wakeMatched(%q) = %v, want %v", tt.transcript, got, tt.want)
		}
	}
}

func TestMachine_ProcessVerse_Answers(t *testing.T) {
	m, _, _, _ := newTestMachine(t, testConfig(),
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
		stt.Result{Text: "요한복음 3장 16절", Confidence: 0.94},
	)

	w, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}

	r, err := m.ProcessVerse(context.Background(), w.SessionID, []byte("verse clip"))
	if err != nil {
		t.Fatalf("ProcessVerse() error = %v", err)
	}
	if r.Reference == nil || r.Reference.Book != "요한복음" || r.Reference.Chapter != 3 || r.Reference.Verse != 16 {
		t.Errorf("Reference = %+v, want 요한복음 3:16", r.Reference)
	}
	if !bytes.Contains([]byte(r.Text), []byte(versetest.John316)) {
		t.Errorf("Text = %q, want it to contain the verse", r.Text)
	}
	if len(r.Audio) == 0 {
		t.Error("expected synthesized reply audio")
	}
	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0 after answer", m.ActiveSessions())
	}
}

func TestMachine_ProcessVerse_NoSession(t *testing.T) {
	m, _, _, _ := newTestMachine(t, testConfig())

	_, err := m.ProcessVerse(context.Background(), "sess-missing", []byte("clip"))
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("ProcessVerse() error = %v, want NotFoundError", err)
	}
}

func TestMachine_ProcessVerse_RepromptThenAnswer(t *testing.T) {
	m, _, _, _ := newTestMachine(t, testConfig(),
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
		stt.Result{Text: "안녕하세요", Confidence: 0.9},
		stt.Result{Text: "요한복음 3장 16절", Confidence: 0.94},
	)

	w, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}

	r, err := m.ProcessVerse(context.Background(), w.SessionID, []byte("bad clip"))
	if err != nil {
		t.Fatalf("first ProcessVerse() error = %v", err)
	}
	if !r.Reprompt {
		t.Fatal("expected a reprompt for an unparseable request")
	}
	if r.ErrorKind == "" {
		t.Error("expected an error kind on the reprompt")
	}
	if len(r.Audio) == 0 {
		t.Error("expected a spoken reprompt")
	}
	if m.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions() = %d, want the session kept", m.ActiveSessions())
	}

	r, err = m.ProcessVerse(context.Background(), w.SessionID, []byte("verse clip"))
	if err != nil {
		t.Fatalf("second ProcessVerse() error = %v", err)
	}
	if r.Reprompt || r.Reference == nil {
		t.Errorf("result = %+v, want an answered reference", r)
	}
}

func TestMachine_ProcessVerse_RepromptBudgetExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxReprompts = 1
	m, _, _, _ := newTestMachine(t, cfg,
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
		stt.Result{Text: "안녕하세요", Confidence: 0.9},
	)

	w, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}

	r, err := m.ProcessVerse(context.Background(), w.SessionID, []byte("bad clip"))
	if err != nil || !r.Reprompt {
		t.Fatalf("first ProcessVerse() = %+v, %v; want a reprompt", r, err)
	}

	_, err = m.ProcessVerse(context.Background(), w.SessionID, []byte("bad clip"))
	if err == nil {
		t.Fatal("expected an error once the reprompt budget is spent")
	}
	if !fault.IsKind(err, fault.KindParse) {
		t.Errorf("error = %v, want the underlying ParseError", err)
	}
	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want the session abandoned", m.ActiveSessions())
	}
}

func TestMachine_ProcessVerse_ConfidenceFloor(t *testing.T) {
	cfg := testConfig()
	cfg.Parser.ConfidenceFloor = 0.95
	m, _, _, _ := newTestMachine(t, cfg,
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
		// Chapter-only request parses with an inferred verse and a
		// confidence below the raised floor.
		stt.Result{Text: "요한복음 3장", Confidence: 0.94},
	)

	w, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}

	r, err := m.ProcessVerse(context.Background(), w.SessionID, []byte("verse clip"))
	if err != nil {
		t.Fatalf("ProcessVerse() error = %v", err)
	}
	if !r.Reprompt {
		t.Errorf("result = %+v, want a reprompt for low confidence", r)
	}
}

func TestMachine_ProcessVerse_CollaboratorFailureAbandonsSession(t *testing.T) {
	m, _, sttAdapter, _ := newTestMachine(t, testConfig(),
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
	)

	w, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}

	// No automatic retry: the session is gone and a new wake is needed.
	sttAdapter.SetError(errors.New("stt down"))
	_, err = m.ProcessVerse(context.Background(), w.SessionID, []byte("verse clip"))
	if !fault.IsKind(err, fault.KindCollaborator) {
		t.Fatalf("ProcessVerse() error = %v, want CollaboratorError", err)
	}
	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0 after a collaborator failure", m.ActiveSessions())
	}

	sttAdapter.SetError(nil)
	_, err = m.ProcessVerse(context.Background(), w.SessionID, []byte("verse clip"))
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("ProcessVerse() after abandon error = %v, want NotFoundError", err)
	}
}

func TestMachine_ProcessVerse_TTSFailureAbandonsSession(t *testing.T) {
	m, _, _, ttsAdapter := newTestMachine(t, testConfig(),
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
		stt.Result{Text: "요한복음 3장 16절", Confidence: 0.94},
	)

	w, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}

	ttsAdapter.SetError(errors.New("tts down"))
	_, err = m.ProcessVerse(context.Background(), w.SessionID, []byte("verse clip"))
	if !fault.IsKind(err, fault.KindCollaborator) {
		t.Fatalf("ProcessVerse() error = %v, want CollaboratorError", err)
	}
	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0 after a collaborator failure", m.ActiveSessions())
	}
}

func TestMachine_ProcessVerse_ExpiredSession(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Timeout = 5 * time.Millisecond
	m, _, _, _ := newTestMachine(t, cfg,
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
		stt.Result{Text: "요한복음 3장 16절", Confidence: 0.94},
	)

	w, err := m.Wake(context.Background(), []byte("wake clip"))
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	_, err = m.ProcessVerse(context.Background(), w.SessionID, []byte("verse clip"))
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("ProcessVerse() error = %v, want ErrSessionExpired", err)
	}
	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", m.ActiveSessions())
	}
}

func TestMachine_Janitor_ReapsExpiredSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Timeout = 5 * time.Millisecond
	m, _, _, _ := newTestMachine(t, cfg, stt.Result{Text: "헤이 은석", Confidence: 0.96})

	if _, err := m.Wake(context.Background(), []byte("wake clip")); err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if m.ActiveSessions() != 1 {
		t.Fatalf("ActiveSessions() = %d, want 1", m.ActiveSessions())
	}

	time.Sleep(20 * time.Millisecond)
	m.reapExpired()

	if m.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0 after reap", m.ActiveSessions())
	}
}

func TestMachine_SynthesizeUsesSpeakerVoice(t *testing.T) {
	m, gate, _, ttsAdapter := newTestMachine(t, testConfig(),
		stt.Result{Text: "헤이 은석", Confidence: 0.96},
		stt.Result{Text: "요한복음 3장 16절", Confidence: 0.94},
	)
	clip := []byte("insuk voice clip")
	if err := gate.Enroll(context.Background(), "insuk", [][]byte{clip}); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	w, err := m.Wake(context.Background(), clip)
	if err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if _, err := m.ProcessVerse(context.Background(), w.SessionID, clip); err != nil {
		t.Fatalf("ProcessVerse() error = %v", err)
	}

	if !bytes.Equal(ttsAdapter.LastReferenceVoice, clip) {
		t.Error("expected the reply cloned from the speaker's own sample")
	}
}

func TestMachine_Ready(t *testing.T) {
	m, _, sttAdapter, _ := newTestMachine(t, testConfig())

	if err := m.Ready(context.Background()); err != nil {
		t.Errorf("Ready() error = %v", err)
	}

	sttAdapter.SetError(errors.New("stt down"))
	if err := m.Ready(context.Background()); err == nil {
		t.Error("expected Ready() to fail when STT is down")
	}
}
