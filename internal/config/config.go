// Package config loads the triage assistant settings from a .env file,
// an optional YAML file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teemow/inboxtriage/internal/credential"
)

// ErrMissingCredentials is returned at startup when a required secret is absent.
var ErrMissingCredentials = errors.New("missing credentials")

// Supported tones.
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneFormal       = "formal"
)

// Supported email selection modes.
const (
	EmailTypeUnread = "unread"
	EmailTypeLatest = "latest"
)

// Supported LLM providers.
const (
	ProviderGroq    = "groq"
	ProviderOllama  = "ollama"
	ProviderBedrock = "bedrock"
)

// Config holds every runtime setting. The mapstructure keys double as the
// lower-cased environment variable names.
type Config struct {
	Name                   string `mapstructure:"your_name"`
	Email                  string `mapstructure:"your_email"`
	Tone                   string `mapstructure:"email_tone"`
	MaxEmails              int    `mapstructure:"max_emails_to_process"`
	EmailType              string `mapstructure:"email_type"`
	Timezone               string `mapstructure:"timezone"`
	DefaultMeetingDuration int    `mapstructure:"default_meeting_duration_mins"`

	GoogleAccount      string `mapstructure:"google_account"`
	CredentialsFile    string `mapstructure:"gmail_credentials_file"`
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`

	LLMProvider         string  `mapstructure:"llm_provider"`
	LLMModel            string  `mapstructure:"llm_model"`
	LLMFallbackProvider string  `mapstructure:"llm_fallback_provider"`
	GroqAPIKey          string  `mapstructure:"groq_api_key"`
	GroqBaseURL         string  `mapstructure:"groq_base_url"`
	OllamaBaseURL       string  `mapstructure:"ollama_base_url"`
	OllamaModel         string  `mapstructure:"ollama_model"`
	BedrockModelID      string  `mapstructure:"bedrock_model_id"`
	AWSRegion           string  `mapstructure:"aws_region"`
	LLMTemperature      float64 `mapstructure:"llm_temperature"`
	LLMMaxTokens        int     `mapstructure:"llm_max_tokens"`

	MarkAsRead bool          `mapstructure:"mark_as_read"`
	HistoryDB  string        `mapstructure:"history_db"`
	RedisURL   string        `mapstructure:"redis_url"`
	DedupeTTL  time.Duration `mapstructure:"dedupe_ttl"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfigPath returns ~/.config/inboxtriage/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxtriage", "config.yaml")
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "history.db")
	}
	return filepath.Join(home, ".local", "share", "inboxtriage", "history.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("your_name", "Your Name")
	v.SetDefault("your_email", "your@email.com")
	v.SetDefault("email_tone", ToneProfessional)
	v.SetDefault("max_emails_to_process", 10)
	v.SetDefault("email_type", EmailTypeUnread)
	v.SetDefault("timezone", "Asia/Kolkata")
	v.SetDefault("default_meeting_duration_mins", 60)

	v.SetDefault("google_account", "default")
	v.SetDefault("gmail_credentials_file", "credentials.json")
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")

	v.SetDefault("llm_provider", ProviderGroq)
	v.SetDefault("llm_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm_fallback_provider", "")
	v.SetDefault("groq_api_key", "")
	v.SetDefault("groq_base_url", "https://api.groq.com")
	v.SetDefault("ollama_base_url", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3")
	v.SetDefault("bedrock_model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("llm_temperature", 0.2)
	v.SetDefault("llm_max_tokens", 1024)

	v.SetDefault("mark_as_read", false)
	v.SetDefault("history_db", defaultHistoryPath())
	v.SetDefault("redis_url", "")
	v.SetDefault("dedupe_ttl", "168h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads .env from the working directory if present, then the YAML
// file at path (or the default path when it exists), then the environment.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !isNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Tone = strings.ToLower(strings.TrimSpace(cfg.Tone))
	cfg.EmailType = strings.ToLower(strings.TrimSpace(cfg.EmailType))
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.LLMFallbackProvider = strings.ToLower(strings.TrimSpace(cfg.LLMFallbackProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	var pathErr *os.PathError
	return errors.As(err, &notFound) || errors.As(err, &pathErr)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Tone {
	case ToneProfessional, ToneCasual, ToneFormal:
	default:
		return fmt.Errorf("invalid email tone %q: must be professional, casual or formal", c.Tone)
	}
	switch c.EmailType {
	case EmailTypeUnread, EmailTypeLatest:
	default:
		return fmt.Errorf("invalid email type %q: must be unread or latest", c.EmailType)
	}
	if c.MaxEmails <= 0 {
		return fmt.Errorf("max emails must be positive, got %d", c.MaxEmails)
	}
	if c.DefaultMeetingDuration <= 0 {
		return fmt.Errorf("default meeting duration must be positive, got %d", c.DefaultMeetingDuration)
	}
	if c.Timezone == "Local" {
		return fmt.Errorf("invalid timezone %q: use an IANA name such as Asia/Kolkata", c.Timezone)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if !knownProvider(c.LLMProvider) {
		return fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}
	if c.LLMFallbackProvider != "" && !knownProvider(c.LLMFallbackProvider) {
		return fmt.Errorf("unknown LLM fallback provider %q", c.LLMFallbackProvider)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("llm max tokens must be positive, got %d", c.LLMMaxTokens)
	}
	return nil
}

func knownProvider(p string) bool {
	switch p {
	case ProviderGroq, ProviderOllama, ProviderBedrock:
		return true
	}
	return false
}

// Location returns the configured timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || loc == time.Local {
		return time.UTC
	}
	return loc
}

// SecretGetter is the subset of credential.Store used to resolve API keys.
type SecretGetter interface {
	Get(key string) (string, error)
}

// RequireCredentials fills provider API keys missing from the environment
// from secrets, and fails with ErrMissingCredentials when a provider that
// needs a key still has none. secrets may be nil.
func (c *Config) RequireCredentials(secrets SecretGetter) error {
	for _, p := range []string{c.LLMProvider, c.LLMFallbackProvider} {
		if p != ProviderGroq {
			continue
		}
		if c.GroqAPIKey == "" && secrets != nil {
			if key, err := secrets.Get(credential.APIKeyName(ProviderGroq)); err == nil {
				c.GroqAPIKey = strings.TrimSpace(key)
			}
		}
		if c.GroqAPIKey == "" {
			return fmt.Errorf("%w: GROQ_API_KEY is not set and no key is stored in the keyring", ErrMissingCredentials)
		}
	}
	return nil
}
