package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

type HTTPConfig struct {
	Port         int      `yaml:"port"`
	MaxUploadMB  int      `yaml:"max_upload_mb"`
	CORSOrigins  []string `yaml:"cors_origins"`
	SessionKey   string   `yaml:"session_secret"`
	SessionTTLMs int      `yaml:"session_ttl_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TranscriptionConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	Model    string `yaml:"model"`
	Prompt   string `yaml:"prompt"`

	// Keywords are domain terms passed to the speech model as spelling hints.
	Keywords []model.AudioKeyword `yaml:"keywords"`
}

type GenerationConfig struct {
	Provider    string   `yaml:"provider"` // bedrock, anthropic, openai, gemini, ollama
	Model       string   `yaml:"model"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
}

type PipelineConfig struct {
	UploadDir            string `yaml:"upload_dir"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	ConcurrentGeneration bool   `yaml:"concurrent_generation"`
}

type AWSConfig struct {
	Region          string `yaml:"region"`
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	SessionToken    string `yaml:"-"`
	BedrockURL      string `yaml:"bedrock_url"`
}

// Credentials are only read from the environment.
type Credentials struct {
	AnthropicKey string
	OpenAIKey    string
	GeminiKey    string
}

type EndpointsConfig struct {
	AnthropicURL string `yaml:"anthropic_url"`
	OpenAIURL    string `yaml:"openai_url"`
	GeminiURL    string `yaml:"gemini_url"`
	OllamaURL    string `yaml:"ollama_url"`
}

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Generation    GenerationConfig    `yaml:"generation"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	AWS           AWSConfig           `yaml:"aws"`
	Endpoints     EndpointsConfig     `yaml:"endpoints"`
	Credentials   Credentials         `yaml:"-"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:         8000,
			MaxUploadMB:  500,
			CORSOrigins:  []string{"*"},
			SessionTTLMs: int((2 * time.Hour).Milliseconds()),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Transcription: TranscriptionConfig{
			Provider: ProviderOpenAI,
		},
		Generation: GenerationConfig{
			Provider:  ProviderBedrock,
			MaxTokens: 10000,
		},
		Pipeline: PipelineConfig{
			TimeoutSeconds: 0,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
	}
}

// Load reads an optional dotenv file, then an optional YAML file at path
// (or STUDY_CONFIG), then applies environment overrides and validates.
// Variables already present in the environment win over the dotenv file.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := loadDotenv(); err != nil {
		return cfg, err
	}

	if path == "" {
		path = strings.TrimSpace(os.Getenv("STUDY_CONFIG"))
	}
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

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadDotenv() error {
	settingsFromEnv := strings.TrimSpace(os.Getenv("SETTINGS_FILE"))
	settingsFile := settingsFromEnv
	if settingsFile == "" {
		settingsFile = ".env"
	}

	if _, err := os.Stat(settingsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) && settingsFromEnv == "" {
			return nil
		}
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := godotenv.Load(settingsFile); err != nil {
		return fmt.Errorf("failed to parse settings file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.HTTP.Port, "PORT")
	overrideInt(&cfg.HTTP.MaxUploadMB, "MAX_UPLOAD_MB")
	overrideStringSlice(&cfg.HTTP.CORSOrigins, "CORS_ORIGINS")
	overrideString(&cfg.HTTP.SessionKey, "SESSION_SECRET")
	overrideString(&cfg.Logging.Level, "LOG_LEVEL")
	overrideString(&cfg.Logging.Format, "LOG_FORMAT")
	overrideString(&cfg.Transcription.Provider, "TRANSCRIPTION_PROVIDER")
	overrideString(&cfg.Transcription.Model, "TRANSCRIPTION_MODEL")
	overrideString(&cfg.Generation.Provider, "GENERATION_PROVIDER")
	overrideString(&cfg.Generation.Model, "GENERATION_MODEL")
	overrideInt(&cfg.Generation.MaxTokens, "GENERATION_MAX_TOKENS")
	overrideFloatPtr(&cfg.Generation.Temperature, "GENERATION_TEMPERATURE")
	overrideString(&cfg.Pipeline.UploadDir, "UPLOAD_DIR")
	overrideInt(&cfg.Pipeline.TimeoutSeconds, "PIPELINE_TIMEOUT")
	overrideBool(&cfg.Pipeline.ConcurrentGeneration, "CONCURRENT_GENERATION")
	overrideString(&cfg.AWS.Region, "AWS_REGION")
	overrideString(&cfg.AWS.Profile, "AWS_PROFILE")
	overrideString(&cfg.AWS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	overrideString(&cfg.AWS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	overrideString(&cfg.AWS.SessionToken, "AWS_SESSION_TOKEN")
	overrideString(&cfg.Endpoints.OpenAIURL, "OPENAI_BASE_URL")
	overrideString(&cfg.Endpoints.OllamaURL, "OLLAMA_BASE_URL")
	overrideString(&cfg.Credentials.AnthropicKey, "ANTHROPIC_API_KEY")
	overrideString(&cfg.Credentials.OpenAIKey, "OPENAI_API_KEY")
	overrideString(&cfg.Credentials.GeminiKey, "GEMINI_KEY")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideFloatPtr(target **float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			*target = &parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

// Validate normalizes provider names and rejects settings no provider
// could be built from.
func (cfg *Config) Validate() error {
	cfg.Transcription.Provider = strings.ToLower(strings.TrimSpace(cfg.Transcription.Provider))
	cfg.Generation.Provider = strings.ToLower(strings.TrimSpace(cfg.Generation.Provider))

	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		return errors.New("http.max_upload_mb must be positive")
	}
	if cfg.HTTP.SessionTTLMs <= 0 {
		return errors.New("http.session_ttl_ms must be positive")
	}
	switch cfg.Transcription.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("transcription.provider must be one of openai|gemini, got %q", cfg.Transcription.Provider)
	}
	switch cfg.Generation.Provider {
	case ProviderBedrock, ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf(
			"generation.provider must be one of bedrock|anthropic|openai|gemini|ollama, got %q",
			cfg.Generation.Provider,
		)
	}
	if cfg.Generation.MaxTokens <= 0 {
		return errors.New("generation.max_tokens must be positive")
	}
	if cfg.Pipeline.TimeoutSeconds < 0 {
		return errors.New("pipeline.timeout_seconds must be >= 0")
	}
	return nil
}

func (cfg Config) MaxUploadBytes() int64 {
	return int64(cfg.HTTP.MaxUploadMB) << 20
}

func (cfg Config) SessionTTL() time.Duration {
	return time.Duration(cfg.HTTP.SessionTTLMs) * time.Millisecond
}

func (cfg Config) PipelineTimeout() time.Duration {
	return time.Duration(cfg.Pipeline.TimeoutSeconds) * time.Second
}

func (cfg Config) Addr() string {
	return ":" + strconv.Itoa(cfg.HTTP.Port)
}
