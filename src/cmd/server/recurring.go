package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRecurringCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Recurring document maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "process-due",
		Short: "Generate every recurring document due today and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			summary, ran, err := a.scheduler.Tick(cmd.Context())
			if err != nil {
				return err
			}
			if !ran {
				fmt.Fprintln(cmd.OutOrStdout(), "another instance is processing recurring definitions")
				return nil
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			if err := out.Encode(summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d recurring definitions failed", summary.Failed)
			}
			return nil
		},
	})

	return cmd
}
