package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/credential"
	"github.com/teemow/inboxtriage/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google authorization and LLM API keys",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthSetKeyCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize a Google account",
		Long: `Open the Google consent page and store the resulting token.

The OAuth client is read from GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET, or
from the credentials file downloaded from the Google Cloud console
(GMAIL_CREDENTIALS_FILE, default credentials.json).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if account == "" {
				account = cfg.GoogleAccount
			}

			conf, err := google.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.CredentialsFile)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			_, err = google.LoginWithLoopback(ctx, conf, account, func(url string) {
				fmt.Fprintf(out, "Open this URL in your browser to authorize account %q:\n\n  %s\n\nWaiting for authorization...\n", account, url)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Account %q authorized.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Google account name (default from GOOGLE_ACCOUNT)")
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a Google token and LLM API keys are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if account == "" {
				account = cfg.GoogleAccount
			}

			var secrets config.SecretGetter
			if creds, err := credential.Open(); err != nil {
				logger.Debug("keyring unavailable", "error", err)
			} else {
				secrets = creds
			}
			printAuthStatus(cmd.OutOrStdout(), cfg, account, google.HasTokenForAccount(account), secrets)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Google account name (default from GOOGLE_ACCOUNT)")
	return cmd
}

func printAuthStatus(w io.Writer, cfg *config.Config, account string, hasToken bool, secrets config.SecretGetter) {
	state := "missing (run 'inboxtriage auth login')"
	if hasToken {
		state = "present"
	}
	fmt.Fprintf(w, "Google account %q: token %s\n", account, state)

	providers := []string{cfg.LLMProvider}
	if cfg.LLMFallbackProvider != "" && cfg.LLMFallbackProvider != cfg.LLMProvider {
		providers = append(providers, cfg.LLMFallbackProvider)
	}
	for _, p := range providers {
		fmt.Fprintf(w, "LLM provider %s: %s\n", p, keyStatus(cfg, p, secrets))
	}
}

func keyStatus(cfg *config.Config, provider string, secrets config.SecretGetter) string {
	if provider != config.ProviderGroq {
		return "no API key needed"
	}
	if cfg.GroqAPIKey != "" {
		return "API key set in environment"
	}
	if secrets != nil {
		if _, err := secrets.Get(credential.APIKeyName(provider)); err == nil {
			return "API key stored in keyring"
		}
	}
	return "API key missing (run 'inboxtriage auth set-key groq')"
}

// keySetter is the subset of credential.Store used by set-key.
type keySetter interface {
	Set(key, value string) error
}

func newAuthSetKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Store an LLM API key in the OS keyring",
		Long: `Read an API key from standard input and store it in the OS keyring.

Example:
  echo "$GROQ_API_KEY" | inboxtriage auth set-key groq`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credential.Open()
			if err != nil {
				return err
			}
			if err := setKey(creds, args[0], cmd.InOrStdin()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key for %s stored.\n", args[0])
			return nil
		},
	}
	return cmd
}

func setKey(store keySetter, provider string, in io.Reader) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != config.ProviderGroq {
		return fmt.Errorf("provider %q does not use an API key", provider)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading API key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return errors.New("empty API key")
	}
	return store.Set(credential.APIKeyName(provider), key)
}
