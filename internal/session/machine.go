package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"voice-scripture-service/internal/config"
	"voice-scripture-service/internal/events"
	"voice-scripture-service/internal/fault"
	"voice-scripture-service/internal/models"
	"voice-scripture-service/internal/observability/logging"
	"voice-scripture-service/internal/observability/metrics"
	"voice-scripture-service/internal/parse"
	"voice-scripture-service/internal/speaker"
	"voice-scripture-service/internal/stt"
	"voice-scripture-service/internal/tts"
	"voice-scripture-service/internal/verse"
)

// wakeTolerance is the edit distance allowed between the normalized
// transcript and a wake variant when no variant appears verbatim.
const wakeTolerance = 1

const (
	repromptText  = "죄송해요, 말씀하신 구절을 찾지 못했어요. 다시 한 번 말씀해주세요."
	notFoundText  = "그런 구절은 없는 것 같아요. 다시 한 번 말씀해주세요."
	dismissalText = "죄송해요, 지금은 도와드릴 수 없어요."
)

// WakeResult is the outcome of processing one wake clip.
type WakeResult struct {
	SessionID  string  `json:"sessionId,omitempty"`
	Transcript string  `json:"transcript"`
	Matched    bool    `json:"matched"`
	Speaker    string  `json:"speaker,omitempty"`
	Score      float64 `json:"score,omitempty"`
	Ignored    bool    `json:"ignored,omitempty"`
	Greeting   string  `json:"greeting,omitempty"`
	Audio      []byte  `json:"-"`
}

// AnswerResult is the outcome of processing one verse-request clip.
type AnswerResult struct {
	SessionID  string           `json:"sessionId"`
	Transcript string           `json:"transcript"`
	Reference  *parse.Reference `json:"reference,omitempty"`
	Text       string           `json:"text"`
	Reprompt   bool             `json:"reprompt,omitempty"`
	ErrorKind  string           `json:"errorKind,omitempty"`
	Audio      []byte           `json:"-"`
}

// Machine orchestrates dialogue sessions. It owns the session table
// and drives STT, parsing, verse lookup, speaker identification and
// TTS in order.
type Machine struct {
	cfg       *config.Config
	corpus    *verse.Corpus
	parser    *parse.Parser
	gate      *speaker.Gate
	stt       stt.Adapter
	tts       tts.Adapter
	publisher *events.Publisher
	metrics   *metrics.Metrics

	ignored map[string]bool

	mu       sync.Mutex
	sessions map[string]*Session
	ignores  map[string]int

	done     chan struct{}
	stopOnce sync.Once
}

// NewMachine wires the orchestrator. Call Start to run the timeout
// janitor and Close to stop it.
func NewMachine(cfg *config.Config, corpus *verse.Corpus, gate *speaker.Gate, sttAdapter stt.Adapter, ttsAdapter tts.Adapter, publisher *events.Publisher) *Machine {
	ignored := make(map[string]bool, len(cfg.Speaker.IgnoreSpeakers))
	for _, label := range cfg.Speaker.IgnoreSpeakers {
		ignored[label] = true
	}
	return &Machine{
		cfg:       cfg,
		corpus:    corpus,
		parser:    parse.New(corpus),
		gate:      gate,
		stt:       sttAdapter,
		tts:       ttsAdapter,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		ignored:   ignored,
		sessions:  make(map[string]*Session),
		ignores:   make(map[string]int),
		done:      make(chan struct{}),
	}
}

// Start launches the janitor goroutine that reaps expired sessions.
func (m *Machine) Start() {
	go m.janitor()
}

// Close stops the janitor.
func (m *Machine) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Ready reports whether the collaborators can serve requests.
func (m *Machine) Ready(ctx context.Context) error {
	if err := m.stt.Ready(ctx); err != nil {
		return fmt.Errorf("stt: %w", err)
	}
	if err := m.tts.Ready(ctx); err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	if err := m.gate.Ready(ctx); err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	return nil
}

// Collaborators reports per-collaborator readiness for health output.
func (m *Machine) Collaborators(ctx context.Context) map[string]string {
	out := map[string]string{"stt": "ready", "tts": "ready", "embed": "ready"}
	if err := m.stt.Ready(ctx); err != nil {
		out["stt"] = err.Error()
	}
	if err := m.tts.Ready(ctx); err != nil {
		out["tts"] = err.Error()
	}
	if err := m.gate.Ready(ctx); err != nil {
		out["embed"] = err.Error()
	}
	return out
}

// ActiveSessions returns the number of live sessions.
func (m *Machine) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Wake transcribes a clip, checks it against the wake phrase and, on
// a match, identifies the speaker and opens a session with a spoken
// greeting.
func (m *Machine) Wake(ctx context.Context, audio []byte) (WakeResult, error) {
	transcript, err := m.transcribe(ctx, audio)
	if err != nil {
		return WakeResult{}, err
	}

	matched := m.wakeMatched(transcript)
	m.metrics.RecordWake(matched)
	if !matched {
		logger := logging.WithComponent("session")
		logger.Debug().
			Str("transcript", transcript).
			Msg("wake phrase not detected")
		return WakeResult{Transcript: transcript}, nil
	}

	match, err := m.gate.Identify(ctx, audio)
	if err != nil {
		return WakeResult{}, err
	}
	m.metrics.RecordIdentify(match.Accepted, match.Score)

	sessionID := uuid.NewString()
	result := WakeResult{
		SessionID:  sessionID,
		Transcript: transcript,
		Matched:    true,
		Speaker:    match.Label,
		Score:      match.Score,
	}

	if m.ignored[match.Label] {
		m.mu.Lock()
		m.ignores[match.Label]++
		count := m.ignores[match.Label]
		m.mu.Unlock()
		m.metrics.RecordWakeIgnored(match.Label)
		logger := logging.WithSpeaker(sessionID, match.Label)
		logger.Info().
			Int("ignoreCount", count).
			Msg("wake from ignored speaker")

		result.SessionID = ""
		result.Ignored = true
		result.Greeting = dismissalText
		result.Audio, err = m.Synthesize(ctx, dismissalText, match.Label)
		if err != nil {
			return WakeResult{}, err
		}
		m.publishWake(ctx, sessionID, result)
		return result, nil
	}

	greeting := m.cfg.Wake.Greeting
	if match.Accepted {
		greeting = fmt.Sprintf("네, %s님! 찾으시는 성경 구절을 말씀해주세요.", match.Label)
	}
	result.Greeting = greeting

	result.Audio, err = m.Synthesize(ctx, greeting, match.Label)
	if err != nil {
		return WakeResult{}, err
	}

	s := NewSession(sessionID, match.Label, m.cfg.Session.Timeout, m.cfg.Session.MaxReprompts)
	if err := s.BeginAwaiting(); err != nil {
		return WakeResult{}, err
	}
	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()
	m.metrics.RecordSessionStart()

	logger := logging.WithSpeaker(sessionID, match.Label)
	logger.Info().
		Str("transcript", transcript).
		Float64("score", match.Score).
		Msg("session opened")

	m.publishWake(ctx, sessionID, result)
	return result, nil
}

// ProcessVerse transcribes a verse-request clip for an open session,
// resolves the reference and answers with synthesized speech. An
// unparseable request re-prompts until the budget runs out.
func (m *Machine) ProcessVerse(ctx context.Context, sessionID string, audio []byte) (AnswerResult, error) {
	m.mu.Lock()
	s := m.sessions[sessionID]
	m.mu.Unlock()
	if s == nil {
		return AnswerResult{}, fault.New(fault.KindNotFound, "no active session %s", sessionID)
	}

	if err := s.BeginResolving(); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			m.removeSession(sessionID)
			m.metrics.RecordSessionTimeout()
		}
		return AnswerResult{}, err
	}

	transcript, err := m.transcribe(ctx, audio)
	if err != nil {
		m.abandon(ctx, s, "", err)
		return AnswerResult{}, err
	}

	log := logging.WithSpeaker(sessionID, s.Speaker())

	ref, err := m.parser.Parse(transcript)
	if err == nil && ref.Confidence < m.cfg.Parser.ConfidenceFloor {
		err = fault.New(fault.KindParse, "parse confidence %.2f below floor %.2f", ref.Confidence, m.cfg.Parser.ConfidenceFloor)
	}
	if err != nil {
		kind, _ := fault.KindOf(err)
		m.metrics.RecordParse(string(kind), 0)
		log.Info().Err(err).Str("transcript", transcript).Msg("reference not resolved")
		return m.reprompt(ctx, s, transcript, repromptText, err)
	}
	m.metrics.RecordParse("ok", ref.Confidence)

	texts, err := m.corpus.LookupRange(ref.Book, ref.Chapter, ref.Verse, ref.VerseEnd)
	if err != nil {
		kind, _ := fault.KindOf(err)
		m.metrics.RecordLookup(string(kind))
		log.Warn().Err(err).Str("transcript", transcript).Msg("verse lookup failed")
		return m.reprompt(ctx, s, transcript, notFoundText, err)
	}
	m.metrics.RecordLookup("ok")

	answer := verse.FormatRange(ref.Book, ref.Chapter, ref.Verse, texts)
	replyAudio, err := m.Synthesize(ctx, answer, s.Speaker())
	if err != nil {
		m.abandon(ctx, s, transcript, err)
		return AnswerResult{}, err
	}

	s.Complete()
	m.removeSession(sessionID)
	m.metrics.RecordSessionEnd(true, s.Age().Seconds())

	log.Info().
		Str("book", ref.Book).
		Int("chapter", ref.Chapter).
		Int("verse", ref.Verse).
		Float64("confidence", ref.Confidence).
		Msg("verse answered")

	result := AnswerResult{
		SessionID:  sessionID,
		Transcript: transcript,
		Reference:  ref,
		Text:       answer,
		Audio:      replyAudio,
	}
	m.publishAnswer(ctx, sessionID, s.Speaker(), transcript, ref, "ok", "")
	return result, nil
}

// abandon discards a session after a collaborator failure. The spoken
// exchange cannot continue without working models; the speaker wakes
// the service again once it recovers.
func (m *Machine) abandon(ctx context.Context, s *Session, transcript string, cause error) {
	kind, _ := fault.KindOf(cause)
	s.Timeout()
	m.removeSession(s.ID())
	m.metrics.RecordSessionEnd(false, s.Age().Seconds())
	m.publishAnswer(ctx, s.ID(), s.Speaker(), transcript, nil, "abandoned", string(kind))
}

// reprompt sends a retry prompt if the session has budget left,
// otherwise abandons the session and surfaces the original error.
func (m *Machine) reprompt(ctx context.Context, s *Session, transcript, prompt string, cause error) (AnswerResult, error) {
	kind, _ := fault.KindOf(cause)

	if err := s.Reprompt(); err != nil {
		m.removeSession(s.ID())
		m.metrics.RecordSessionEnd(false, s.Age().Seconds())
		m.publishAnswer(ctx, s.ID(), s.Speaker(), transcript, nil, "abandoned", string(kind))
		return AnswerResult{}, cause
	}

	audio, err := m.Synthesize(ctx, prompt, s.Speaker())
	if err != nil {
		m.abandon(ctx, s, transcript, err)
		return AnswerResult{}, err
	}

	m.publishAnswer(ctx, s.ID(), s.Speaker(), transcript, nil, "reprompt", string(kind))
	return AnswerResult{
		SessionID:  s.ID(),
		Transcript: transcript,
		Text:       prompt,
		Reprompt:   true,
		ErrorKind:  string(kind),
		Audio:      audio,
	}, nil
}

// transcribe runs STT with latency accounting.
func (m *Machine) transcribe(ctx context.Context, audio []byte) (string, error) {
	start := time.Now()
	res, err := m.stt.Transcribe(ctx, audio)
	m.metrics.RecordCollaborator("stt", err, time.Since(start).Seconds())
	if err != nil {
		return "", fault.Wrap(fault.KindCollaborator, err, "transcription failed")
	}
	return strings.TrimSpace(res.Text), nil
}

// Synthesize renders reply text in the speaker's own voice when a
// sample is enrolled, falling back to the canonical reference voice.
func (m *Machine) Synthesize(ctx context.Context, text, speakerLabel string) ([]byte, error) {
	ref, ok := m.gate.Sample(speakerLabel)
	if !ok {
		ref, _ = m.gate.Sample(m.cfg.Speaker.ReferenceVoice)
	}

	start := time.Now()
	audio, err := m.tts.Synthesize(ctx, text, m.cfg.TTS.LanguageCode, ref)
	m.metrics.RecordCollaborator("tts", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fault.Wrap(fault.KindCollaborator, err, "speech synthesis failed")
	}
	return audio, nil
}

// wakeMatched checks the transcript against the wake phrase and its
// variants, ignoring spaces and case and tolerating one edit.
func (m *Machine) wakeMatched(transcript string) bool {
	norm := normalizeWake(transcript)
	if norm == "" {
		return false
	}
	for _, candidate := range append([]string{m.cfg.Wake.Phrase}, m.cfg.Wake.Variants...) {
		c := normalizeWake(candidate)
		if c == "" {
			continue
		}
		if strings.Contains(norm, c) {
			return true
		}
		if levenshtein.ComputeDistance(norm, c) <= wakeTolerance {
			return true
		}
	}
	return false
}

func normalizeWake(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func (m *Machine) removeSession(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// janitor reaps sessions whose deadline passed without an answer.
func (m *Machine) janitor() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.reapExpired()
		}
	}
}

func (m *Machine) reapExpired() {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.Expired() {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if s.Timeout() {
			m.metrics.RecordSessionTimeout()
			logger := logging.WithSpeaker(s.ID(), s.Speaker())
			logger.Info().
				Dur("age", s.Age()).
				Msg("session timed out")
		}
	}
}

func (m *Machine) publishWake(ctx context.Context, sessionID string, r WakeResult) {
	event := models.WakeEvent{
		EventType:  m.cfg.Kafka.TopicWake,
		SessionID:  sessionID,
		Timestamp:  time.Now().UnixMilli(),
		Transcript: r.Transcript,
		Matched:    r.Matched,
		Speaker:    r.Speaker,
		Score:      r.Score,
		Ignored:    r.Ignored,
	}
	if err := m.publisher.PublishWake(ctx, sessionID, event); err != nil {
		logger := logging.WithComponent("session")
		logger.Warn().Err(err).Msg("wake event publish failed")
	}
}

func (m *Machine) publishAnswer(ctx context.Context, sessionID, speakerLabel, transcript string, ref *parse.Reference, outcome, errorKind string) {
	event := models.AnswerEvent{
		EventType:  m.cfg.Kafka.TopicAnswer,
		SessionID:  sessionID,
		Timestamp:  time.Now().UnixMilli(),
		Transcript: transcript,
		Speaker:    speakerLabel,
		Outcome:    outcome,
		ErrorKind:  errorKind,
	}
	if ref != nil {
		event.Book = ref.Book
		event.Chapter = ref.Chapter
		event.Verse = ref.Verse
		event.VerseEnd = ref.VerseEnd
		event.Confidence = ref.Confidence
	}
	if err := m.publisher.PublishAnswer(ctx, sessionID, event); err != nil {
		logger := logging.WithComponent("session")
		logger.Warn().Err(err).Msg("answer event publish failed")
	}
}
