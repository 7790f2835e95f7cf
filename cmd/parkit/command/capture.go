package command

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkit/server/internal/app"
	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/services"
)

var (
	captureLat      float64
	captureLon      float64
	captureAccuracy float64
)

var captureCmd = &cobra.Command{
	Use:   "capture <photo>",
	Short: "Record a new parking spot from a photo",
	Long: `Processes the photo (bounded to the configured size and re-encoded
as JPEG) and saves it as the parking record, replacing any previous one.
The location comes from --lat/--lon when given, else from the photo's
GPS tags. A missing location does not fail the capture.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().Float64Var(&captureLat, "lat", 0, "latitude of the parking spot")
	captureCmd.Flags().Float64Var(&captureLon, "lon", 0, "longitude of the parking spot")
	captureCmd.Flags().Float64Var(&captureAccuracy, "accuracy", 0, "fix accuracy in metres")
	captureCmd.MarkFlagsRequiredTogether("lat", "lon")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	req := services.CaptureRequest{
		Input: models.CaptureInput{
			Data:        data,
			ContentType: detectContentType(path, data),
			Filename:    filepath.Base(path),
		},
	}
	if cmd.Flags().Changed("lat") {
		now := time.Now()
		req.Fix = &models.Coordinates{
			Latitude:  captureLat,
			Longitude: captureLon,
			FixedAt:   &now,
			Source:    models.LocationSourceClient,
		}
		if captureAccuracy > 0 {
			req.Fix.Accuracy = &captureAccuracy
		}
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		res, err := a.Controller.Capture(ctx, req)
		if err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Parking saved (%dx%d, %d bytes)\n", res.Photo.Width, res.Photo.Height, len(res.Photo.Data))
		if !res.LocationObtained {
			fmt.Fprintln(out, "Location unavailable; photo saved without coordinates")
		}
		printSnapshot(out, res.Snapshot)
		return nil
	})
}

// detectContentType prefers the extension and falls back to sniffing
func detectContentType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
