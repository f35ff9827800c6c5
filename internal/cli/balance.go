package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trainerleave/internal/app/server"
	"trainerleave/internal/domain/leave"
)

func newBalanceCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <trainer-id>",
		Short: "Show a trainer's leave balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd.Context(), func(s *server.Services) error {
				snapshot, err := s.Leave.GetBalance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(snapshot)
				}
				return writeBalances(opts, snapshot)
			})
		},
	}
}

func writeBalances(opts *options, snapshot leave.BalanceSnapshot) error {
	fmt.Fprintf(opts.out, "Trainer %s (%s)\n", snapshot.TrainerID, snapshot.Category)
	tw := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tAVAILABLE\tUSED\tCARRY FORWARD")
	for _, b := range snapshot.Balances {
		available := b.Available.String()
		if b.Unlimited {
			available = "unlimited"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.LeaveType, available, b.Used.String(), b.CarryForward.String())
	}
	return tw.Flush()
}
