// Package cli implements leavectl, the operator tool for the leave engine.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"trainerleave/internal/app/server"
	"trainerleave/internal/platform/config"
)

type options struct {
	jsonOutput bool
	out        io.Writer
	// bootstrap builds the service graph; replaced in tests.
	bootstrap func(ctx context.Context, cfg config.Config) (*server.Services, error)
}

// NewRootCommand assembles leavectl and its subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{out: os.Stdout, bootstrap: server.Bootstrap})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "leavectl",
		Short: "Operate the trainer leave engine",
		Long: `leavectl runs migrations, triggers the accrual and rollover jobs outside
their schedule, inspects balances and mints development access tokens.
It reads the same environment variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.out = cmd.OutOrStdout()
		},
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		newMigrateCommand(opts),
		newJobCommand(opts, "accrue", server.JobAccrual, "Credit the monthly SICK and CASUAL increment", false),
		newJobCommand(opts, "rollover", server.JobRollover, "Cap unused balances into carry-forward for the new year", true),
		newBalanceCommand(opts),
		newTokenCommand(opts),
	)
	return root
}

// Execute runs leavectl with os.Args.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig reads and validates the environment. Migrations only run from
// the migrate command.
func loadConfig() (config.Config, error) {
	cfg := config.Load()
	cfg.RunMigrations = false
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *options) withServices(ctx context.Context, fn func(s *server.Services) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	services, err := o.bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()
	return fn(services)
}

func (o *options) printJSON(v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
