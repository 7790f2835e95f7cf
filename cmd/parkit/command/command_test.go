package command

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// syncBuffer lets the readout goroutine and the test share one writer
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	// Subcommands keep the context of an earlier run unless it is replaced
	for _, sub := range rootCmd.Commands() {
		sub.SetContext(ctx)
	}
	t.Cleanup(func() {
		for _, sub := range rootCmd.Commands() {
			sub.SetContext(context.Background())
		}
	})
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func writePhoto(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 40, A: 255})
		}
	}
	path := filepath.Join(dir, "spot.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "none.yaml"))
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "parkit.db"))
	t.Setenv("GEO_TIMEOUT_MS", "200")

	out, err := runCLI(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No parking recorded.")

	photo := writePhoto(t, dir)
	out, err = runCLI(t, "", "capture", photo, "--lat", "48.8584", "--lon", "2.2945")
	require.NoError(t, err)
	assert.Contains(t, out, "Parking saved (120x90")
	assert.Contains(t, out, "48.8584")
	assert.Contains(t, out, "Elapsed:  00:00:")

	out, err = runCLI(t, "", "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"state": "has_record"`)
	statusJSON = false

	out, err = runCLI(t, "n\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = runCLI(t, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Parking record cleared.")

	out, err = runCLI(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No parking recorded.")

	out, err = runCLI(t, "", "guide")
	require.NoError(t, err)
	assert.Contains(t, out, "shown on start")

	out, err = runCLI(t, "", "guide", "--dismiss")
	require.NoError(t, err)
	assert.Contains(t, out, "hidden")
}

func TestCLI_CaptureRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "none.yaml"))
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "parkit.db"))

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("left it near the bakery"), 0644))

	_, err := runCLI(t, "", "capture", notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only image files can be uploaded")
}

func TestCLI_Watch(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "none.yaml"))
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "parkit.db"))
	t.Setenv("GEO_TIMEOUT_MS", "200")
	t.Setenv("READOUT_TICK_MS", "100")

	t.Run("reports when nothing is recorded", func(t *testing.T) {
		out, err := runCLIContext(t, context.Background(), "watch")
		require.NoError(t, err)
		assert.Contains(t, out, "No parking recorded.")
	})

	t.Run("prints readouts until cancelled", func(t *testing.T) {
		_, err := runCLI(t, "", "capture", writePhoto(t, dir))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
		defer cancel()

		out, err := runCLIContext(t, ctx, "watch")
		require.NoError(t, err)
		assert.Contains(t, out, "Elapsed:  00:00:")
		assert.Contains(t, out, "\r00:00:0")
		assert.True(t, strings.HasSuffix(out, "\n"), "watch ends on a fresh line")
	})
}
