package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel        string `yaml:"log_level"`
	OTLPEndpoint    string `yaml:"otlp_endpoint"`
	OTLPInsecure    bool   `yaml:"otlp_insecure"`
	TraceStdout     bool   `yaml:"trace_stdout"`
	MetricsTextfile string `yaml:"metrics_textfile"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Model       ModelConfig     `yaml:"model"`
	Synth       SynthConfig     `yaml:"synth"`
	Playback    PlaybackConfig  `yaml:"playback"`
	Bus         BusConfig       `yaml:"bus"`
	Journal     JournalConfig   `yaml:"journal"`
}

// ModelConfig holds the per-run values the command line flags override.
type ModelConfig struct {
	Dir              string  `yaml:"dir"`
	TextFile         string  `yaml:"text_file"`
	Output           string  `yaml:"output"`
	SpeakerID        int     `yaml:"speaker_id"`
	Speed            float64 `yaml:"speed"`
	Debug            int     `yaml:"debug"`
	IncludeZhLexicon bool    `yaml:"include_zh_lexicon"`
}

type SynthConfig struct {
	Mode            string `yaml:"mode"` // mock, exec
	Command         string `yaml:"command"`
	SampleRate      int    `yaml:"sample_rate"`
	ChunkDurationMS int    `yaml:"chunk_duration_ms"`
	TimeoutMS       int    `yaml:"timeout_ms"`
}

type PlaybackConfig struct {
	Enabled         bool `yaml:"enabled"`
	FramesPerBuffer int  `yaml:"frames_per_buffer"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
	PublishAudio   bool     `yaml:"publish_audio"`
}

type JournalConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-say",
		Environment: "development",
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
		Model: ModelConfig{
			Dir:      "./kokoro-multi-lang-v1_1",
			TextFile: "./kokoro-multi-lang-v1_1/test_input.txt",
			Output:   "./generated-kokoro-zh-en.wav",
			Speed:    1.0,
			Debug:    1,
		},
		Synth: SynthConfig{
			Mode:            "mock",
			SampleRate:      24000,
			ChunkDurationMS: 400,
			TimeoutMS:       300000,
		},
		Playback: PlaybackConfig{
			Enabled:         true,
			FramesPerBuffer: 1024,
		},
		Bus: BusConfig{
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			SubjectPrefix:  "tts",
		},
		Journal: JournalConfig{
			Path:          "./data/loqa-say.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxSessions:   1000,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and LOQA_* environment
// variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "LOQA_TELEMETRY_TRACE_STDOUT")
	overrideString(&cfg.Telemetry.MetricsTextfile, "LOQA_TELEMETRY_METRICS_TEXTFILE")
	overrideString(&cfg.Model.Dir, "LOQA_MODEL_DIR")
	overrideString(&cfg.Model.TextFile, "LOQA_MODEL_TEXT_FILE")
	overrideString(&cfg.Model.Output, "LOQA_MODEL_OUTPUT")
	overrideInt(&cfg.Model.SpeakerID, "LOQA_MODEL_SPEAKER_ID")
	overrideFloat(&cfg.Model.Speed, "LOQA_MODEL_SPEED")
	overrideInt(&cfg.Model.Debug, "LOQA_MODEL_DEBUG")
	overrideBool(&cfg.Model.IncludeZhLexicon, "LOQA_MODEL_INCLUDE_ZH_LEXICON")
	overrideString(&cfg.Synth.Mode, "LOQA_SYNTH_MODE")
	overrideString(&cfg.Synth.Command, "LOQA_SYNTH_COMMAND")
	overrideInt(&cfg.Synth.SampleRate, "LOQA_SYNTH_SAMPLE_RATE")
	overrideInt(&cfg.Synth.ChunkDurationMS, "LOQA_SYNTH_CHUNK_DURATION_MS")
	overrideInt(&cfg.Synth.TimeoutMS, "LOQA_SYNTH_TIMEOUT_MS")
	overrideBool(&cfg.Playback.Enabled, "LOQA_PLAYBACK_ENABLED")
	overrideInt(&cfg.Playback.FramesPerBuffer, "LOQA_PLAYBACK_FRAMES_PER_BUFFER")
	overrideBool(&cfg.Bus.Enabled, "LOQA_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOQA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.SubjectPrefix, "LOQA_BUS_SUBJECT_PREFIX")
	overrideBool(&cfg.Bus.PublishAudio, "LOQA_BUS_PUBLISH_AUDIO")
	overrideString(&cfg.Journal.Path, "LOQA_JOURNAL_PATH")
	overrideString(&cfg.Journal.RetentionMode, "LOQA_JOURNAL_RETENTION_MODE")
	overrideInt(&cfg.Journal.RetentionDays, "LOQA_JOURNAL_RETENTION_DAYS")
	overrideInt(&cfg.Journal.MaxSessions, "LOQA_JOURNAL_MAX_SESSIONS")
	overrideBool(&cfg.Journal.VacuumOnStart, "LOQA_JOURNAL_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

// Validate checks cross-field constraints. The command line calls it again
// after applying flags.
func Validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	if cfg.Model.Dir == "" {
		return errors.New("model.dir must not be empty")
	}
	if cfg.Model.TextFile == "" {
		return errors.New("model.text_file must not be empty")
	}
	if cfg.Model.Output == "" {
		return errors.New("model.output must not be empty")
	}
	if cfg.Model.SpeakerID < 0 {
		return errors.New("model.speaker_id must be >= 0")
	}
	if !(cfg.Model.Speed > 0) {
		return errors.New("model.speed must be positive")
	}
	if cfg.Model.Debug != 0 && cfg.Model.Debug != 1 {
		return errors.New("model.debug must be 0 or 1")
	}
	switch cfg.Synth.Mode {
	case "mock", "exec":
	default:
		return errors.New("synth.mode must be one of mock|exec")
	}
	if cfg.Synth.Mode == "exec" && cfg.Synth.Command == "" {
		return errors.New("synth.command must be set when mode=exec")
	}
	if cfg.Synth.SampleRate <= 0 {
		return errors.New("synth.sample_rate must be positive")
	}
	if cfg.Synth.ChunkDurationMS <= 0 {
		return errors.New("synth.chunk_duration_ms must be positive")
	}
	if cfg.Synth.TimeoutMS < 0 {
		return errors.New("synth.timeout_ms must be >= 0")
	}
	if cfg.Playback.Enabled && cfg.Playback.FramesPerBuffer <= 0 {
		return errors.New("playback.frames_per_buffer must be positive")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if cfg.Bus.SubjectPrefix == "" {
			return errors.New("bus.subject_prefix must not be empty")
		}
	}
	switch cfg.Journal.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("journal.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Journal.RetentionMode != "ephemeral" && cfg.Journal.Path == "" {
		return errors.New("journal.path must not be empty when retention is enabled")
	}
	if cfg.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must be >= 0")
	}
	return nil
}
