package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkit/server/internal/models"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func decodeOutput(t *testing.T, photo *models.ProcessedPhoto) image.Config {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(photo.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	return cfg
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		wantW, wantH int
	}{
		{"already fits", 640, 480, 640, 480},
		{"exact box", 800, 600, 800, 600},
		{"landscape 4:3", 4000, 3000, 800, 600},
		{"wide", 1600, 400, 800, 200},
		{"portrait", 3000, 4000, 450, 600},
		{"tall sliver", 10, 10000, 1, 600},
		{"tiny never upscaled", 1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.srcW, tt.srcH, 800, 600)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestCaptureService_Process(t *testing.T) {
	svc := NewCaptureService(DefaultCaptureOptions(), NewEXIFService())
	ctx := context.Background()

	t.Run("downsamples large images into the box", func(t *testing.T) {
		in := models.CaptureInput{Data: pngBytes(t, 1600, 1000), ContentType: "image/png"}

		photo, err := svc.Process(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, OutputMediaType, photo.MediaType)
		assert.LessOrEqual(t, photo.Width, 800)
		assert.LessOrEqual(t, photo.Height, 600)

		cfg := decodeOutput(t, photo)
		assert.Equal(t, photo.Width, cfg.Width)
		assert.Equal(t, photo.Height, cfg.Height)

		// aspect ratio kept within rounding
		assert.InDelta(t, float64(photo.Width)*1000/1600, float64(photo.Height), 1)
	})

	t.Run("keeps dimensions of small images", func(t *testing.T) {
		in := models.CaptureInput{Data: jpegBytes(t, 320, 240), ContentType: "image/jpeg"}

		photo, err := svc.Process(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, 320, photo.Width)
		assert.Equal(t, 240, photo.Height)
		cfg := decodeOutput(t, photo)
		assert.Equal(t, 320, cfg.Width)
	})

	t.Run("output is a jpeg data uri", func(t *testing.T) {
		in := models.CaptureInput{Data: pngBytes(t, 50, 50), ContentType: "image/png"}

		photo, err := svc.Process(ctx, in)
		require.NoError(t, err)

		mediaType, data, err := models.ParseDataURI(photo.DataURI())
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mediaType)
		assert.Equal(t, photo.Data, data)
	})

	t.Run("rejects non-image types", func(t *testing.T) {
		in := models.CaptureInput{Data: []byte("%PDF-1.4"), ContentType: "application/pdf"}

		_, err := svc.Process(ctx, in)
		assert.ErrorIs(t, err, models.ErrInvalidInputType)
	})

	t.Run("rejects undecodable data", func(t *testing.T) {
		in := models.CaptureInput{Data: []byte("definitely not pixels"), ContentType: "image/jpeg"}

		_, err := svc.Process(ctx, in)
		assert.ErrorIs(t, err, models.ErrDecode)
	})

	t.Run("rejects empty data", func(t *testing.T) {
		_, err := svc.Process(ctx, models.CaptureInput{ContentType: "image/png"})
		assert.ErrorIs(t, err, models.ErrInvalidInputType)
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		opts := DefaultCaptureOptions()
		opts.MaxUploadBytes = 10
		small := NewCaptureService(opts, NewEXIFService())

		_, err := small.Process(ctx, models.CaptureInput{Data: pngBytes(t, 20, 20), ContentType: "image/png"})
		assert.ErrorIs(t, err, models.ErrInputTooLarge)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.Process(cancelled, models.CaptureInput{Data: pngBytes(t, 20, 20), ContentType: "image/png"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestApplyOrientation(t *testing.T) {
	img := testImage(40, 20)

	tests := []struct {
		orientation  int
		wantW, wantH int
	}{
		{1, 40, 20},
		{2, 40, 20},
		{3, 40, 20},
		{4, 40, 20},
		{5, 20, 40},
		{6, 20, 40},
		{7, 20, 40},
		{8, 20, 40},
	}

	for _, tt := range tests {
		out := applyOrientation(img, tt.orientation)
		assert.Equal(t, tt.wantW, out.Bounds().Dx(), "orientation %d", tt.orientation)
		assert.Equal(t, tt.wantH, out.Bounds().Dy(), "orientation %d", tt.orientation)
	}
}
