package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config stores the resolved runtime configuration. Resolution order
// is defaults, then the optional YAML file, then environment
// variables.
type Config struct {
	Gemini  GeminiConfig
	Audio   AudioConfig
	Session SessionConfig
	Metrics MetricsConfig
}

type GeminiConfig struct {
	APIKey            string
	Endpoint          string
	Model             string
	Voice             string
	SystemInstruction string
	Tools             []string
}

type AudioConfig struct {
	FFmpegCommand string
	InputFormat   string
	InputDevice   string
	SampleRate    int
	Channels      int
}

type SessionConfig struct {
	OutputSampleRate     int
	ReconnectBase        time.Duration
	ReconnectCeiling     time.Duration
	MaxReconnectAttempts int
	TeardownCooldown     time.Duration
	LogCapacity          int
}

type MetricsConfig struct {
	Addr string
}

// Load resolves configuration from defaults, an optional YAML file
// named by HOLOVOX_CONFIG, and environment variables. A .env file in
// the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("HOLOVOX_CONFIG")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	clamp(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		Gemini: GeminiConfig{
			Model: "models/gemini-2.0-flash-exp",
			Voice: "Puck",
		},
		Audio: AudioConfig{
			FFmpegCommand: "ffmpeg",
			InputFormat:   "pulse",
			InputDevice:   "default",
			SampleRate:    16000,
			Channels:      1,
		},
		Session: SessionConfig{
			OutputSampleRate:     24000,
			ReconnectBase:        3 * time.Second,
			ReconnectCeiling:     15 * time.Second,
			MaxReconnectAttempts: 5,
			TeardownCooldown:     150 * time.Millisecond,
			LogCapacity:          30,
		},
	}
}

type fileConfig struct {
	Gemini struct {
		Endpoint          string   `yaml:"endpoint"`
		Model             string   `yaml:"model"`
		Voice             string   `yaml:"voice"`
		SystemInstruction string   `yaml:"system_instruction"`
		Tools             []string `yaml:"tools"`
	} `yaml:"gemini"`
	Audio struct {
		FFmpegCommand string `yaml:"ffmpeg_command"`
		InputFormat   string `yaml:"input_format"`
		InputDevice   string `yaml:"input_device"`
		SampleRate    int    `yaml:"sample_rate"`
	} `yaml:"audio"`
	Session struct {
		OutputSampleRate     int `yaml:"output_sample_rate"`
		ReconnectBaseMS      int `yaml:"reconnect_base_ms"`
		ReconnectCeilingMS   int `yaml:"reconnect_ceiling_ms"`
		MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
		TeardownCooldownMS   int `yaml:"teardown_cooldown_ms"`
		LogCapacity          int `yaml:"log_capacity"`
	} `yaml:"session"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

func applyFile(cfg *Config, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.Gemini.Endpoint, file.Gemini.Endpoint)
	setString(&cfg.Gemini.Model, file.Gemini.Model)
	setString(&cfg.Gemini.Voice, file.Gemini.Voice)
	setString(&cfg.Gemini.SystemInstruction, file.Gemini.SystemInstruction)
	if len(file.Gemini.Tools) > 0 {
		cfg.Gemini.Tools = file.Gemini.Tools
	}

	setString(&cfg.Audio.FFmpegCommand, file.Audio.FFmpegCommand)
	setString(&cfg.Audio.InputFormat, file.Audio.InputFormat)
	setString(&cfg.Audio.InputDevice, file.Audio.InputDevice)
	setInt(&cfg.Audio.SampleRate, file.Audio.SampleRate)

	setInt(&cfg.Session.OutputSampleRate, file.Session.OutputSampleRate)
	setMillis(&cfg.Session.ReconnectBase, file.Session.ReconnectBaseMS)
	setMillis(&cfg.Session.ReconnectCeiling, file.Session.ReconnectCeilingMS)
	setInt(&cfg.Session.MaxReconnectAttempts, file.Session.MaxReconnectAttempts)
	setMillis(&cfg.Session.TeardownCooldown, file.Session.TeardownCooldownMS)
	setInt(&cfg.Session.LogCapacity, file.Session.LogCapacity)

	setString(&cfg.Metrics.Addr, file.Metrics.Addr)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.Gemini.Endpoint = envOrDefault("HOLOVOX_GEMINI_ENDPOINT", cfg.Gemini.Endpoint)
	cfg.Gemini.Model = envOrDefault("HOLOVOX_MODEL", cfg.Gemini.Model)
	cfg.Gemini.Voice = envOrDefault("HOLOVOX_VOICE", cfg.Gemini.Voice)
	cfg.Gemini.SystemInstruction = envOrDefault("HOLOVOX_SYSTEM_PROMPT", cfg.Gemini.SystemInstruction)
	if tools := strings.TrimSpace(os.Getenv("HOLOVOX_TOOLS")); tools != "" {
		cfg.Gemini.Tools = splitList(tools)
	}

	cfg.Audio.FFmpegCommand = envOrDefault("HOLOVOX_FFMPEG_COMMAND", cfg.Audio.FFmpegCommand)
	cfg.Audio.InputFormat = envOrDefault("HOLOVOX_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("HOLOVOX_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrDefaultInt("HOLOVOX_SAMPLE_RATE", cfg.Audio.SampleRate)

	cfg.Session.OutputSampleRate = envOrDefaultInt("HOLOVOX_OUTPUT_SAMPLE_RATE", cfg.Session.OutputSampleRate)
	cfg.Session.ReconnectBase = envOrDefaultMillis("HOLOVOX_RECONNECT_BASE_MS", cfg.Session.ReconnectBase)
	cfg.Session.ReconnectCeiling = envOrDefaultMillis("HOLOVOX_RECONNECT_CEILING_MS", cfg.Session.ReconnectCeiling)
	cfg.Session.MaxReconnectAttempts = envOrDefaultInt("HOLOVOX_MAX_RECONNECT_ATTEMPTS", cfg.Session.MaxReconnectAttempts)
	cfg.Session.TeardownCooldown = envOrDefaultMillis("HOLOVOX_TEARDOWN_COOLDOWN_MS", cfg.Session.TeardownCooldown)
	cfg.Session.LogCapacity = envOrDefaultInt("HOLOVOX_LOG_CAPACITY", cfg.Session.LogCapacity)

	cfg.Metrics.Addr = envOrDefault("HOLOVOX_METRICS_ADDR", cfg.Metrics.Addr)
}

func clamp(cfg *Config) {
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.OutputSampleRate <= 0 {
		cfg.Session.OutputSampleRate = 24000
	}
	if cfg.Session.ReconnectBase <= 0 {
		cfg.Session.ReconnectBase = 3 * time.Second
	}
	if cfg.Session.ReconnectCeiling < cfg.Session.ReconnectBase {
		cfg.Session.ReconnectCeiling = cfg.Session.ReconnectBase
	}
	if cfg.Session.MaxReconnectAttempts <= 0 {
		cfg.Session.MaxReconnectAttempts = 5
	}
	if cfg.Session.TeardownCooldown < 0 {
		cfg.Session.TeardownCooldown = 150 * time.Millisecond
	}
	if cfg.Session.LogCapacity <= 0 {
		cfg.Session.LogCapacity = 30
	}
}

func setString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func setInt(dst *int, value int) {
	if value > 0 {
		*dst = value
	}
}

func setMillis(dst *time.Duration, value int) {
	if value > 0 {
		*dst = time.Duration(value) * time.Millisecond
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
