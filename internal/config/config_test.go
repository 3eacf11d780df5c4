package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/credential"
)

func validConfig() *Config {
	return &Config{
		Tone:                   ToneProfessional,
		EmailType:              EmailTypeUnread,
		MaxEmails:              10,
		Timezone:               "Asia/Kolkata",
		DefaultMeetingDuration: 60,
		LLMProvider:            ProviderGroq,
		LLMMaxTokens:           1024,
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Your Name", cfg.Name)
	assert.Equal(t, "your@email.com", cfg.Email)
	assert.Equal(t, ToneProfessional, cfg.Tone)
	assert.Equal(t, 10, cfg.MaxEmails)
	assert.Equal(t, EmailTypeUnread, cfg.EmailType)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, 60, cfg.DefaultMeetingDuration)
	assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLMModel)
	assert.InDelta(t, 0.2, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, 1024, cfg.LLMMaxTokens)
	assert.Equal(t, 168*time.Hour, cfg.DedupeTTL)
	assert.False(t, cfg.MarkAsRead)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("your_name: Ada\nemail_tone: casual\nmax_emails_to_process: 3\n"), 0o600))
	t.Setenv("EMAIL_TONE", "Formal")
	t.Setenv("MARK_AS_READ", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada", cfg.Name)
	assert.Equal(t, ToneFormal, cfg.Tone)
	assert.Equal(t, 3, cfg.MaxEmails)
	assert.True(t, cfg.MarkAsRead)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad tone", func(c *Config) { c.Tone = "snarky" }, true},
		{"bad email type", func(c *Config) { c.EmailType = "starred" }, true},
		{"zero max", func(c *Config) { c.MaxEmails = 0 }, true},
		{"zero duration", func(c *Config) { c.DefaultMeetingDuration = 0 }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"local timezone", func(c *Config) { c.Timezone = "Local" }, true},
		{"empty timezone is UTC", func(c *Config) { c.Timezone = "" }, false},
		{"bad provider", func(c *Config) { c.LLMProvider = "openai" }, true},
		{"bad fallback", func(c *Config) { c.LLMFallbackProvider = "openai" }, true},
		{"ollama fallback", func(c *Config) { c.LLMFallbackProvider = ProviderOllama }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	t.Run("missing groq key", func(t *testing.T) {
		cfg := validConfig()
		err := cfg.RequireCredentials(nil)
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("key from keyring", func(t *testing.T) {
		store := credential.NewStore(keyring.NewArrayKeyring(nil))
		require.NoError(t, store.Set(credential.APIKeyName(ProviderGroq), "gsk_test"))

		cfg := validConfig()
		require.NoError(t, cfg.RequireCredentials(store))
		assert.Equal(t, "gsk_test", cfg.GroqAPIKey)
	})

	t.Run("env key wins", func(t *testing.T) {
		store := credential.NewStore(keyring.NewArrayKeyring(nil))
		require.NoError(t, store.Set(credential.APIKeyName(ProviderGroq), "gsk_ring"))

		cfg := validConfig()
		cfg.GroqAPIKey = "gsk_env"
		require.NoError(t, cfg.RequireCredentials(store))
		assert.Equal(t, "gsk_env", cfg.GroqAPIKey)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = ProviderOllama
		assert.NoError(t, cfg.RequireCredentials(nil))
	})

	t.Run("groq fallback needs key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = ProviderBedrock
		cfg.LLMFallbackProvider = ProviderGroq
		assert.ErrorIs(t, cfg.RequireCredentials(nil), ErrMissingCredentials)
	})
}

func TestLocation(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())

	for _, tz := range []string{"", "Local", "Mars/Olympus"} {
		cfg.Timezone = tz
		assert.Equal(t, time.UTC, cfg.Location(), tz)
	}
}
