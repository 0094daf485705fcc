package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	apihttp "voice-scripture-service/internal/api/http"
	"voice-scripture-service/internal/config"
	"voice-scripture-service/internal/embed"
	embedhttp "voice-scripture-service/internal/embed/httpapi"
	embedmock "voice-scripture-service/internal/embed/mock"
	"voice-scripture-service/internal/events"
	"voice-scripture-service/internal/observability"
	"voice-scripture-service/internal/observability/logging"
	"voice-scripture-service/internal/observability/metrics"
	"voice-scripture-service/internal/parse"
	"voice-scripture-service/internal/session"
	"voice-scripture-service/internal/speaker"
	"voice-scripture-service/internal/stt"
	sttgoogle "voice-scripture-service/internal/stt/google"
	sttmock "voice-scripture-service/internal/stt/mock"
	sttopenai "voice-scripture-service/internal/stt/openai"
	"voice-scripture-service/internal/tts"
	ttsmock "voice-scripture-service/internal/tts/mock"
	"voice-scripture-service/internal/tts/xtts"
	"voice-scripture-service/internal/verse"
)

func main() {
	// Local development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	corpus, err := verse.Load(cfg.Corpus.Path)
	if err != nil {
		// DataError at startup is fatal: serving without a full corpus
		// would answer with silently wrong verses.
		log.Fatal().Err(err).Str("path", cfg.Corpus.Path).Msg("corpus load failed")
	}

	sttAdapter, sttCleanup, err := newSTTAdapter(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("STT adapter init failed")
	}
	defer sttCleanup()

	ttsAdapter := newTTSAdapter(cfg)
	extractor := newEmbedAdapter(cfg)

	gate := speaker.NewGate(extractor, cfg.Speaker.Threshold)
	if err := gate.Reload(context.Background(), cfg.Speaker.VoiceDir); err != nil {
		// Not fatal: the service can run without enrolled speakers,
		// attributing every wake to "unknown".
		log.Warn().Err(err).Str("dir", cfg.Speaker.VoiceDir).Msg("voice profile load failed")
	}
	metrics.DefaultMetrics.RecordProfileReload(nil, gate.Count())
	log.Info().Int("speakers", gate.Count()).Strs("labels", gate.Labels()).Msg("voice profiles loaded")

	publisher := events.New(&events.Config{
		Enabled:     cfg.Kafka.Enabled,
		Brokers:     cfg.Kafka.Brokers,
		TopicWake:   cfg.Kafka.TopicWake,
		TopicAnswer: cfg.Kafka.TopicAnswer,
		Principal:   cfg.Kafka.Principal,
	})
	defer publisher.Close()

	machine := session.NewMachine(cfg, corpus, gate, sttAdapter, ttsAdapter, publisher)
	machine.Start()
	defer machine.Close()

	obsServer := observability.NewServer(":"+cfg.Service.MetricsPort, machine.Ready)
	obsServer.Start()

	apiServer := apihttp.NewServer(cfg, machine, gate, parse.New(corpus), corpus)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      apihttp.NewRouter(apiServer),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Service.HTTPPort).
			Str("sttProvider", cfg.STT.Provider).
			Int("books", corpus.BookCount()).
			Msg("voice scripture service started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("observability shutdown failed")
	}
}

func newSTTAdapter(cfg *config.Config) (stt.Adapter, func(), error) {
	switch cfg.STT.Provider {
	case "openai":
		return sttopenai.New(cfg.STT.LanguageCode), func() {}, nil
	case "google":
		a, err := sttgoogle.New(context.Background(), cfg.STT.LanguageCode, cfg.STT.SampleRateHz)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil
	default:
		log.Warn().Msg("using mock STT adapter; transcripts are scripted")
		return sttmock.New(), func() {}, nil
	}
}

func newTTSAdapter(cfg *config.Config) tts.Adapter {
	if cfg.TTS.Endpoint == "" {
		log.Warn().Msg("TTS_ENDPOINT not set; using mock TTS adapter")
		return ttsmock.New()
	}
	return xtts.New(cfg.TTS.Endpoint, cfg.TTS.Timeout)
}

func newEmbedAdapter(cfg *config.Config) embed.Adapter {
	if cfg.Embed.Endpoint == "" {
		log.Warn().Msg("EMBED_ENDPOINT not set; using mock embedding adapter")
		return embedmock.New(cfg.Embed.Dim)
	}
	return embedhttp.New(cfg.Embed.Endpoint, cfg.Embed.Dim, cfg.Embed.Timeout)
}
