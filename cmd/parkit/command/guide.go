package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parkit/server/internal/app"
	"github.com/parkit/server/internal/repository"
)

var (
	guideDismiss bool
	guideReset   bool
)

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show or change whether the help guide is displayed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			switch {
			case guideDismiss:
				if err := a.Guide.Dismiss(ctx, true); err != nil {
					return err
				}
			case guideReset:
				if err := a.Store.SetFlag(ctx, repository.FlagGuideDismissed, false); err != nil {
					return err
				}
			}

			if a.Guide.ShouldShow(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), "Help guide: shown on start")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Help guide: hidden")
			}
			return nil
		})
	},
}

func init() {
	guideCmd.Flags().BoolVar(&guideDismiss, "dismiss", false, "stop showing the guide")
	guideCmd.Flags().BoolVar(&guideReset, "reset", false, "show the guide again")
	guideCmd.MarkFlagsMutuallyExclusive("dismiss", "reset")
	rootCmd.AddCommand(guideCmd)
}
