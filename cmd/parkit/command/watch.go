package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parkit/server/internal/app"
	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/services"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the elapsed parking time every second until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printer := readoutPrinter{w: cmd.OutOrStdout()}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			snap := a.Controller.Snapshot()
			if snap.State != models.StateHasRecord {
				fmt.Fprintln(cmd.OutOrStdout(), "No parking recorded.")
				return nil
			}
			printSnapshot(cmd.OutOrStdout(), snap)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			// No readout can be written once the timer is stopped
			a.Controller.Stop()
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		}, services.WithNotifier(printer))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// readoutPrinter rewrites a single terminal line on every readout
type readoutPrinter struct {
	w io.Writer
}

func (p readoutPrinter) Notify(msgType string, payload interface{}) {
	if msgType != services.WSTypeReadout {
		return
	}
	if r, ok := payload.(models.Readout); ok {
		fmt.Fprintf(p.w, "\r%s  %-8s", r.Elapsed, r.Tier)
	}
}
