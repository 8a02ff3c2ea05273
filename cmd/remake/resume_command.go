package main

import (
	"github.com/spf13/cobra"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "resume <workdir>",
		Short: "Resume an interrupted run from its checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, verbose)
			if err != nil {
				return err
			}

			coordinator, ledger, err := buildCoordinator(cfg, logger, args[0])
			if err != nil {
				return err
			}
			defer ledger.Close()

			output, err := coordinator.Resume(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd, output, false)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}
