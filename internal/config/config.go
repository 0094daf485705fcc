// Package config loads service configuration from the environment.
// Every tunable has an explicit field and a default; nothing reads
// ambient globals past startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration, validated at startup and
// passed by reference into each component.
type Config struct {
	Service       ServiceConfig
	Corpus        CorpusConfig
	Wake          WakeConfig
	Parser        ParserConfig
	Speaker       SpeakerConfig
	Session       SessionConfig
	STT           STTConfig
	TTS           TTSConfig
	Embed         EmbedConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name        string
	HTTPPort    string
	MetricsPort string
}

type CorpusConfig struct {
	Path string
}

type WakeConfig struct {
	// Phrase is the canonical wake phrase.
	Phrase string
	// Variants are accepted mishearings, comma-separated in env.
	Variants []string
	// Greeting is the fallback greeting when the speaker is unknown.
	Greeting string
}

type ParserConfig struct {
	// ConfidenceFloor below which the session re-prompts instead of answering.
	ConfidenceFloor float64
}

type SpeakerConfig struct {
	// VoiceDir holds enrollment samples, filename stem = speaker label.
	VoiceDir string
	// Threshold is the global accept threshold on cosine distance;
	// lower means more similar. A single global value trades
	// false-accepts against false-rejects for everyone.
	Threshold float64
	// ReferenceVoice is the label whose sample drives TTS cloning
	// when no per-speaker voice is requested.
	ReferenceVoice string
	// IgnoreSpeakers are labels whose wake is acknowledged but not served.
	IgnoreSpeakers []string
}

type SessionConfig struct {
	// Timeout caps how long a session may wait for further input.
	Timeout time.Duration
	// MaxReprompts bounds parse-failure retries before reset to idle.
	MaxReprompts int
}

type STTConfig struct {
	// Provider selects the adapter: mock, openai or google.
	Provider     string
	LanguageCode string
	SampleRateHz int
}

type TTSConfig struct {
	// Endpoint of the XTTS synthesis server.
	Endpoint     string
	LanguageCode string
	Timeout      time.Duration
}

type EmbedConfig struct {
	// Endpoint of the speaker-embedding extraction server.
	Endpoint string
	// Dim is the expected embedding dimension (ECAPA-TDNN emits 192).
	Dim     int
	Timeout time.Duration
}

type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	TopicWake   string
	TopicAnswer string
	Principal   string
}

type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        envOrDefault("SERVICE_NAME", "voice-scripture-service"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8000"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Corpus: CorpusConfig{
			Path: envOrDefault("CORPUS_PATH", "bible_ko.json"),
		},
		Wake: WakeConfig{
			Phrase:   envOrDefault("WAKE_PHRASE", "헤이 은석"),
			Variants: envList("WAKE_VARIANTS", []string{"헤이은석", "헤이 은서", "에이 은석", "헤이 응석", "헤이 은숙", "헤이 인석", "헤이 윤석", "hey 은석"}),
			Greeting: envOrDefault("WAKE_GREETING", "네, 안녕하세요! 찾으시는 성경 구절을 말씀해주세요."),
		},
		Parser: ParserConfig{
			ConfidenceFloor: envFloat("PARSER_CONFIDENCE_FLOOR", 0.5),
		},
		Speaker: SpeakerConfig{
			VoiceDir:       envOrDefault("VOICE_DIR", "voice_samples"),
			Threshold:      envFloat("SPEAKER_THRESHOLD", 0.18),
			ReferenceVoice: envOrDefault("TTS_REFERENCE_VOICE", "insuk"),
			IgnoreSpeakers: envList("IGNORE_SPEAKERS", nil),
		},
		Session: SessionConfig{
			Timeout:      envDuration("SESSION_TIMEOUT", 30*time.Second),
			MaxReprompts: envInt("SESSION_MAX_REPROMPTS", 2),
		},
		STT: STTConfig{
			Provider:     envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode: envOrDefault("STT_LANGUAGE_CODE", "ko"),
			SampleRateHz: envInt("STT_SAMPLE_RATE_HZ", 16000),
		},
		TTS: TTSConfig{
			Endpoint:     envOrDefault("TTS_ENDPOINT", "http://localhost:8020"),
			LanguageCode: envOrDefault("TTS_LANGUAGE_CODE", "ko"),
			Timeout:      envDuration("TTS_TIMEOUT", 30*time.Second),
		},
		Embed: EmbedConfig{
			Endpoint: envOrDefault("EMBED_ENDPOINT", "http://localhost:8030"),
			Dim:      envInt("EMBED_DIM", 192),
			Timeout:  envDuration("EMBED_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:     envBool("KAFKA_ENABLED", false),
			Brokers:     envList("KAFKA_BROKERS", nil),
			TopicWake:   envOrDefault("KAFKA_TOPIC_WAKE", "interaction.wake"),
			TopicAnswer: envOrDefault("KAFKA_TOPIC_ANSWER", "interaction.answer"),
			Principal:   envOrDefault("SERVICE_PRINCIPAL", "svc-voice-scripture"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks field ranges. Called once at startup before serving.
func (c *Config) Validate() error {
	if c.Parser.ConfidenceFloor < 0 || c.Parser.ConfidenceFloor > 1 {
		return fmt.Errorf("PARSER_CONFIDENCE_FLOOR must be in [0,1], got %v", c.Parser.ConfidenceFloor)
	}
	if c.Speaker.Threshold <= 0 || c.Speaker.Threshold >= 1 {
		return fmt.Errorf("SPEAKER_THRESHOLD must be in (0,1), got %v", c.Speaker.Threshold)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %v", c.Session.Timeout)
	}
	if c.Session.MaxReprompts < 0 {
		return fmt.Errorf("SESSION_MAX_REPROMPTS must be non-negative, got %d", c.Session.MaxReprompts)
	}
	switch c.STT.Provider {
	case "mock", "openai", "google":
	default:
		return fmt.Errorf("STT_PROVIDER must be mock, openai or google, got %q", c.STT.Provider)
	}
	if c.Embed.Dim <= 0 {
		return fmt.Errorf("EMBED_DIM must be positive, got %d", c.Embed.Dim)
	}
	if c.Wake.Phrase == "" {
		return fmt.Errorf("WAKE_PHRASE must not be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_ENABLED requires KAFKA_BROKERS")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return def
}
