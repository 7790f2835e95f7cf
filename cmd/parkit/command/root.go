// Package command provides the parkit CLI. It works directly against the
// same configuration and record store as the server:
//
//	parkit capture photo.jpg [--lat 52.52 --lon 13.40]
//	parkit status [--json]
//	parkit watch
//	parkit clear [--yes]
//	parkit guide [--dismiss | --reset]
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parkit/server/internal/app"
	"github.com/parkit/server/internal/config"
	"github.com/parkit/server/internal/observability"
	"github.com/parkit/server/internal/services"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "parkit",
	Short: "Remember where you parked",
	Long: `parkit keeps a single parking record: a photo of where the car
was left, when it was taken and, when available, the coordinates.
Capturing again replaces the record; clearing removes it.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path (JSON or YAML)")
}

// withApp loads the configuration, starts the controller and hands it to
// fn. Logs go to stderr so command output stays clean.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error, opts ...services.ControllerOption) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}

	logger := observability.GetLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	if cfg.LogLevel == "info" {
		logger.SetLevel(observability.LevelWarn)
	} else {
		logger.SetLevel(observability.ParseLevel(cfg.LogLevel))
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.Start(ctx)
	return fn(ctx, a)
}
