package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"remake/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		goal      string
		duration  string
		style     string
		lang      string
		story     string
		persona   string
		forbidden []string
		outputDir string
		dryRun    bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "run <source-url-or-path>",
		Short: "Run the remake pipeline against a source video",
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

			workDir := outputDir
			if workDir == "" {
				workDir = filepath.Join(cfg.Paths.WorkRoot, "run-"+time.Now().UTC().Format("20060102-150405"))
			}

			var opts []pipeline.CoordinatorOption
			if dryRun {
				opts = append(opts, pipeline.WithStopAfter(pipeline.StagePlan))
			}
			coordinator, ledger, err := buildCoordinator(cfg, logger, workDir, opts...)
			if err != nil {
				return err
			}
			defer ledger.Close()

			input := pipeline.RemakeInput{
				SourceLocator:     args[0],
				Goal:              goal,
				DurationSpec:      duration,
				Language:          lang,
				StyleDirectives:   style,
				StoryInstructions: story,
				Persona:           persona,
				ForbiddenTerms:    forbidden,
			}
			output, err := coordinator.Run(cmd.Context(), input)
			if err != nil {
				return err
			}
			printSummary(cmd, output, dryRun)
			return nil
		},
	}

	cmd.Flags().StringVarP(&goal, "goal", "g", "", "What the remake should achieve (required)")
	cmd.Flags().StringVarP(&duration, "duration", "d", "", "Target duration (e.g. 60s, 2m, 1h, original)")
	cmd.Flags().StringVar(&style, "style", "", "Style directives for the edit")
	cmd.Flags().StringVar(&lang, "lang", "", "Content language hint (ISO code)")
	cmd.Flags().StringVar(&story, "story", "", "Story or narration instructions")
	cmd.Flags().StringVar(&persona, "persona", "", "Narrator persona")
	cmd.Flags().StringSliceVar(&forbidden, "forbidden", nil, "Terms the output transcript must not contain")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Working directory for this run")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after planning; produce the recipe without rendering")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("goal")

	return cmd
}

func printSummary(cmd *cobra.Command, output *pipeline.RemakeOutput, dryRun bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:     %s\n", output.RunID)
	fmt.Fprintf(out, "Workdir: %s\n", output.WorkDir)
	if dryRun || !output.Completed {
		fmt.Fprintf(out, "Stopped after planning; recipe is in %s\n", output.WorkDir)
	} else {
		fmt.Fprintf(out, "Output:  %s\n", output.OutputPath)
		fmt.Fprintf(out, "QA:      score %d, passed %s\n", output.QAScore, yesNo(output.QAPassed))
	}
	if len(output.Warnings) > 0 {
		fmt.Fprintln(out, "Warnings:")
		for _, warning := range output.Warnings {
			fmt.Fprintf(out, "  - %s\n", warning)
		}
	}
}
