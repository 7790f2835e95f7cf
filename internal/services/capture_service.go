package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/parkit/server/internal/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// OutputMediaType is the media type of every processed photo
const OutputMediaType = "image/jpeg"

// CaptureOptions bounds the processed photo
type CaptureOptions struct {
	MaxWidth       int
	MaxHeight      int
	Quality        int   // JPEG quality (1-100)
	MaxUploadBytes int64 // 0 disables the limit
}

// DefaultCaptureOptions returns the 800x600, quality 70 policy
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		MaxWidth:       800,
		MaxHeight:      600,
		Quality:        70,
		MaxUploadBytes: 25 << 20,
	}
}

// CaptureService turns a raw upload into a bounded JPEG
type CaptureService struct {
	opts CaptureOptions
	exif *EXIFService
}

// NewCaptureService creates a new CaptureService
func NewCaptureService(opts CaptureOptions, exifService *EXIFService) *CaptureService {
	return &CaptureService{opts: opts, exif: exifService}
}

// Process validates, decodes, orients, downsamples and re-encodes an image.
// Nothing is persisted.
func (s *CaptureService) Process(ctx context.Context, in models.CaptureInput) (*models.ProcessedPhoto, error) {
	if !in.IsImage() {
		return nil, fmt.Errorf("%w: got %q", models.ErrInvalidInputType, in.MediaType())
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", models.ErrInvalidInputType)
	}
	if s.opts.MaxUploadBytes > 0 && int64(len(in.Data)) > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", models.ErrInputTooLarge, len(in.Data))
	}

	img, err := decodeImage(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := s.exif.ExtractFromBytes(in.Data)
	img = applyOrientation(img, meta.Orientation)

	bounds := img.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), s.opts.MaxWidth, s.opts.MaxHeight)
	if width != bounds.Dx() || height != bounds.Dy() {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.opts.Quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEncode, err)
	}

	return &models.ProcessedPhoto{
		Data:      buf.Bytes(),
		MediaType: OutputMediaType,
		Width:     width,
		Height:    height,
	}, nil
}

// FitWithin returns the dimensions of a srcW x srcH image scaled uniformly to
// fit a maxW x maxH box. Images that already fit are never upscaled.
func FitWithin(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}

	ratio := math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	width := int(math.Round(float64(srcW) * ratio))
	height := int(math.Round(float64(srcH) * ratio))

	return max(width, 1), max(height, 1)
}

// decodeImage decodes the registered formats, falling back to HEIC/HEIF
func decodeImage(in models.CaptureInput) (image.Image, error) {
	if isHEIC(in) {
		return decodeHEIC(in.Data)
	}

	img, _, err := image.Decode(bytes.NewReader(in.Data))
	if err == nil {
		return img, nil
	}

	// Some cameras label HEIC output as image/jpeg
	if heicImg, heicErr := decodeHEIC(in.Data); heicErr == nil {
		return heicImg, nil
	}
	return nil, err
}

// isHEIC checks the declared type and extension for HEIC/HEIF
func isHEIC(in models.CaptureInput) bool {
	switch in.MediaType() {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	return ext == ".heic" || ext == ".heif"
}

// decodeHEIC decodes a HEIC/HEIF image using goheif
func decodeHEIC(data []byte) (img image.Image, err error) {
	// goheif panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("failed to decode HEIC image: %v", r)
		}
	}()

	img, err = goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode HEIC image: %w", err)
	}
	return img, nil
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
