package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/server"
)

const (
	scheduleDays   = 7
	scheduleEvents = 5
)

type runFlags struct {
	max       int
	emailType string
	account   string
	dryRun    bool
	asJSON    bool
}

func (f runFlags) validate() error {
	if f.max < 0 {
		return fmt.Errorf("--max must not be negative")
	}
	switch f.emailType {
	case "", config.EmailTypeUnread, config.EmailTypeLatest:
		return nil
	default:
		return fmt.Errorf("--type must be %s or %s", config.EmailTypeUnread, config.EmailTypeLatest)
	}
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one batch of emails and print the digest",
		Long: `Fetch emails, classify each one, create calendar entries for meetings and
reminders, save reply drafts and print a digest.

Drafts are saved to Gmail and never sent. Use --dry-run to classify only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return runTriage(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.max, "max", 0, "Maximum number of emails to process (default from MAX_EMAILS_TO_PROCESS)")
	cmd.Flags().StringVar(&flags.emailType, "type", "", "Which emails to fetch: unread or latest (default from EMAIL_TYPE)")
	cmd.Flags().StringVar(&flags.account, "account", "", "Google account name to use (default from GOOGLE_ACCOUNT)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Classify only; do not create calendar entries or drafts")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print the digest as JSON")

	return cmd
}

func runTriage(cmd *cobra.Command, flags runFlags) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(ctx, runtimeOptions{Account: flags.account, Instrument: true})
	if err != nil {
		if missingCredentials(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Run 'inboxtriage auth login' and 'inboxtriage auth set-key groq' to set up credentials.")
		}
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	loc := rt.cfg.Location()

	if !flags.asJSON {
		events, err := rt.sc.UpcomingEvents(ctx, rt.cfg.GoogleAccount, scheduleDays, scheduleEvents)
		if err != nil {
			rt.logger.Warn("could not load upcoming schedule", logging.Err(err))
		} else {
			renderSchedule(out, events, scheduleDays, loc)
		}
	}

	digest, runErr := rt.sc.Run(ctx, server.Profile{
		Account:   rt.cfg.GoogleAccount,
		EmailType: flags.emailType,
		MaxEmails: flags.max,
		DryRun:    flags.dryRun,
		Trigger:   instrumentation.TriggerCLI,
	})
	if digest != nil {
		if flags.asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(digest); err != nil {
				return err
			}
		} else {
			renderDigest(out, digest)
		}
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run interrupted: %w", runErr)
		}
		return runErr
	}
	return nil
}
