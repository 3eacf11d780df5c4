package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/triage"
)

func newConfirmCmd() *cobra.Command {
	var (
		req     triage.ConfirmRequest
		account string
	)

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Create a calendar entry by hand",
		Long: `Create a meeting or reminder with an explicit date and time.

The date and time are checked before anything is sent to Google Calendar.

Example:
  inboxtriage confirm --action MEETING --title "Budget review" \
    --date 2026-03-15 --time 14:30 --duration 45 --attendee jane@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if _, _, err := req.Validate(cfg.Location()); err != nil {
				return err
			}

			rt, err := newRuntime(cmd.Context(), runtimeOptions{Account: account})
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.sc.ConfirmCalendar(cmd.Context(), rt.cfg.GoogleAccount, req)
			if err != nil {
				return fmt.Errorf("failed to create calendar event: %w", err)
			}
			printConfirmResult(cmd, res, rt.cfg.Location())
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Action, "action", "MEETING", "Entry type: MEETING or REMINDER")
	cmd.Flags().StringVar(&req.Title, "title", "", "Event title")
	cmd.Flags().StringVar(&req.Date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Time, "time", "", "Time (HH:MM, 24-hour)")
	cmd.Flags().IntVar(&req.DurationMinutes, "duration", 0, "Meeting duration in minutes (default from DEFAULT_MEETING_DURATION_MINS)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Event description")
	cmd.Flags().StringVar(&req.AttendeeEmail, "attendee", "", "Attendee to invite to a meeting")
	cmd.Flags().StringVar(&req.EmailID, "email-id", "", "ID of the email the entry came from")
	cmd.Flags().StringVar(&account, "account", "", "Google account name to use (default from GOOGLE_ACCOUNT)")

	return cmd
}

func printConfirmResult(cmd *cobra.Command, res *triage.ConfirmResult, loc *time.Location) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("CALENDAR EVENT CREATED"))
	fmt.Fprintln(out, field("Title", res.Title))
	fmt.Fprintln(out, field("Start", res.Start.In(loc).Format("Mon Jan 2 2006 15:04 MST")))
	if res.EventLink != "" {
		fmt.Fprintln(out, field("Link", res.EventLink))
	}
}
