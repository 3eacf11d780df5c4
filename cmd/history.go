package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs or show one run's digest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return errors.New("run history is disabled (HISTORY_DB is empty)")
			}

			s, err := store.NewSQLiteStore(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if len(args) == 0 {
				runs, err := s.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(out).Encode(runs)
				}
				renderRuns(out, runs, cfg.Location())
				return nil
			}

			digest, err := s.GetRun(ctx, args[0])
			if err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(digest)
			}
			renderDigest(out, digest)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultListLimit, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
