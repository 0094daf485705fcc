// Package http exposes the dialogue service over REST. Audio travels
// base64-encoded inside JSON bodies; encoding/json handles []byte
// fields transparently.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"voice-scripture-service/internal/config"
	"voice-scripture-service/internal/fault"
	"voice-scripture-service/internal/observability/metrics"
	"voice-scripture-service/internal/parse"
	"voice-scripture-service/internal/session"
	"voice-scripture-service/internal/speaker"
	"voice-scripture-service/internal/verse"
)

// Server holds the handler dependencies.
type Server struct {
	cfg     *config.Config
	machine *session.Machine
	gate    *speaker.Gate
	parser  *parse.Parser
	corpus  *verse.Corpus
}

// NewServer creates the REST handler set.
func NewServer(cfg *config.Config, machine *session.Machine, gate *speaker.Gate, parser *parse.Parser, corpus *verse.Corpus) *Server {
	return &Server{cfg: cfg, machine: machine, gate: gate, parser: parser, corpus: corpus}
}

type wakeRequest struct {
	Audio []byte `json:"audio"`
}

type wakeResponse struct {
	session.WakeResult
	Audio []byte `json:"audio,omitempty"`
}

type verseRequest struct {
	SessionID string `json:"sessionId"`
	Audio     []byte `json:"audio"`
}

type verseResponse struct {
	session.AnswerResult
	Audio []byte `json:"audio,omitempty"`
}

type identifyRequest struct {
	Audio []byte `json:"audio"`
}

type enrollRequest struct {
	Label   string   `json:"label"`
	Samples [][]byte `json:"samples"`
}

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type errorBody struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// handleWake processes a wake-phrase clip.
func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	var req wakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid JSON body")
		return
	}
	if len(req.Audio) == 0 {
		writeError(w, http.StatusBadRequest, "BadRequest", "audio is required")
		return
	}

	result, err := s.machine.Wake(r.Context(), req.Audio)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wakeResponse{WakeResult: result, Audio: result.Audio})
}

// handleVerse processes a verse-request clip for an open session.
func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	var req verseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid JSON body")
		return
	}
	if req.SessionID == "" || len(req.Audio) == 0 {
		writeError(w, http.StatusBadRequest, "BadRequest", "sessionId and audio are required")
		return
	}

	result, err := s.machine.ProcessVerse(r.Context(), req.SessionID, req.Audio)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verseResponse{AnswerResult: result, Audio: result.Audio})
}

// handleParse resolves a text reference without audio, for debugging
// and scripted clients.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "BadRequest", "text query parameter is required")
		return
	}

	ref, err := s.parser.Parse(text)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// handleLookup returns verse text for an explicit reference.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	book := q.Get("book")
	chapter, _ := strconv.Atoi(q.Get("chapter"))
	verseNum, _ := strconv.Atoi(q.Get("verse"))
	verseEnd, _ := strconv.Atoi(q.Get("verseEnd"))
	if book == "" || chapter < 1 || verseNum < 1 {
		writeError(w, http.StatusBadRequest, "BadRequest", "book, chapter and verse are required")
		return
	}

	canonical, err := s.corpus.ResolveAlias(book)
	if err != nil {
		writeFault(w, err)
		return
	}
	texts, err := s.corpus.LookupRange(canonical, chapter, verseNum, verseEnd)
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"book":      canonical,
		"chapter":   chapter,
		"verse":     verseNum,
		"verseEnd":  verseEnd,
		"texts":     texts,
		"formatted": verse.FormatRange(canonical, chapter, verseNum, texts),
	})
}

// handleIdentify scores a clip against the enrolled profiles.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid JSON body")
		return
	}
	if len(req.Audio) == 0 {
		writeError(w, http.StatusBadRequest, "BadRequest", "audio is required")
		return
	}

	match, err := s.gate.Identify(r.Context(), req.Audio)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// handleEnroll adds enrollment samples for a speaker.
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid JSON body")
		return
	}
	if req.Label == "" || len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "BadRequest", "label and samples are required")
		return
	}

	if err := s.gate.Enroll(r.Context(), req.Label, req.Samples); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"label":    req.Label,
		"speakers": s.gate.Count(),
	})
}

// handleReload rebuilds the speaker catalog from the voice directory.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.gate.Reload(r.Context(), s.cfg.Speaker.VoiceDir)
	metrics.DefaultMetrics.RecordProfileReload(err, s.gate.Count())
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"speakers": s.gate.Count(),
		"labels":   s.gate.Labels(),
	})
}

// handleTTS synthesizes arbitrary text, optionally in an enrolled voice.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "BadRequest", "text is required")
		return
	}
	voice := req.Voice
	if voice == "" {
		voice = s.cfg.Speaker.ReferenceVoice
	}

	audio, err := s.machine.Synthesize(r.Context(), req.Text, voice)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audio": audio})
}

// handleHealth reports service state for scripted clients.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"books":         s.corpus.BookCount(),
		"speakers":      s.gate.Count(),
		"sessions":      s.machine.ActiveSessions(),
		"collaborators": s.machine.Collaborators(r.Context()),
	})
}

// writeFault maps the error taxonomy onto HTTP statuses.
func writeFault(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		writeError(w, http.StatusGone, "SessionExpired", err.Error())
		return
	case errors.Is(err, session.ErrSessionTerminal), errors.Is(err, session.ErrNotAwaiting):
		writeError(w, http.StatusConflict, "SessionState", err.Error())
		return
	}

	kind, ok := fault.KindOf(err)
	if !ok {
		log.Error().Err(err).Msg("unclassified handler error")
		writeError(w, http.StatusInternalServerError, "InternalError", "internal error")
		return
	}

	var status int
	switch kind {
	case fault.KindParse, fault.KindRange, fault.KindUnknownBook:
		status = http.StatusUnprocessableEntity
	case fault.KindAmbiguous:
		status = http.StatusConflict
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindCollaborator:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	var fe *fault.Error
	reason := err.Error()
	if errors.As(err, &fe) {
		reason = fe.Reason
	}
	writeError(w, status, string(kind), reason)
}

func writeError(w http.ResponseWriter, status int, kind, reason string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Reason: reason}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
