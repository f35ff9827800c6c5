package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trainerleave/internal/platform/config"
	"trainerleave/internal/platform/db"
)

func newMigrateCommand(opts *options) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			if seed {
				if err := db.Seed(ctx, pool, cfg); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}
			fmt.Fprintln(opts.out, "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "also create the seed admin and demo data")
	return cmd
}
