package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trainerleave/internal/app/server"
	"trainerleave/internal/platform/jobs"
)

func newJobCommand(opts *options, use, job, short string, forceable bool) *cobra.Command {
	var testMode, force bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

The run takes the same job lock as the server scheduler, so it is skipped
while another process holds it. --test-mode computes and reports the outcome
and rolls every change back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd.Context(), func(s *server.Services) error {
				res, err := s.Runner.Trigger(cmd.Context(), job, jobs.Options{
					DryRun:  testMode,
					Force:   force,
					Trigger: jobs.TriggerManual,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", job, err)
				}
				if opts.jsonOutput {
					return opts.printJSON(res)
				}
				if res.Skipped {
					fmt.Fprintf(opts.out, "%s skipped: lock held by another process\n", job)
					return nil
				}
				fmt.Fprintf(opts.out, "%s finished: %+v\n", job, res.Details)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&testMode, "test-mode", false, "compute the outcome without committing")
	if forceable {
		cmd.Flags().BoolVar(&force, "force", false, "run outside the configured rollover month")
	}
	return cmd
}
