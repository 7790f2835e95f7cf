package models

import (
	"encoding/base64"
	"mime"
	"strings"
)

// CaptureInput is a raw image handed to the capture pipeline, either from a
// camera capture or from a file picker.
type CaptureInput struct {
	Data        []byte
	ContentType string
	Filename    string
}

// MediaType returns the declared media type without parameters, lowercased
func (in CaptureInput) MediaType() string {
	mt, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(in.ContentType))
	}
	return mt
}

// IsImage reports whether the declared media type is an image type
func (in CaptureInput) IsImage() bool {
	return strings.HasPrefix(in.MediaType(), "image/")
}

// ProcessedPhoto is the bounded, re-encoded output of the capture pipeline
type ProcessedPhoto struct {
	Data      []byte
	MediaType string
	Width     int
	Height    int
}

// DataURI renders the photo as a self-describing data URI
func (p *ProcessedPhoto) DataURI() string {
	return "data:" + p.MediaType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// ParseDataURI splits a base64 data URI into its media type and payload
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}

	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 || mediaType == "" {
		return "", nil, ErrInvalidDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidDataURI
	}

	return mediaType, data, nil
}
