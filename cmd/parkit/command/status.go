package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/parkit/server/internal/app"
	"github.com/parkit/server/internal/models"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current parking record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			snap := a.Controller.Snapshot()
			if statusJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(models.SnapshotToResponse(snap, ""))
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}

func printSnapshot(w io.Writer, snap models.Snapshot) {
	if snap.State != models.StateHasRecord || snap.Record == nil {
		fmt.Fprintln(w, "No parking recorded.")
		return
	}

	fmt.Fprintf(w, "Parked:   %s (%s)\n", snap.Record.Timestamp.Local().Format(time.DateTime), snap.Readout.Relative)
	fmt.Fprintf(w, "Elapsed:  %s [%s]\n", snap.Readout.Elapsed, snap.Readout.Tier)
	if snap.Map != nil {
		fmt.Fprintf(w, "Location: %s\n", snap.Map.Label)
		fmt.Fprintf(w, "Map:      %s\n", snap.Map.MapsURL)
	} else {
		fmt.Fprintln(w, "Location: unknown")
	}
}
