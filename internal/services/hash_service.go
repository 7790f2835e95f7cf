package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashService fingerprints photo bytes for HTTP cache validation
type HashService struct{}

// NewHashService creates a new HashService
func NewHashService() *HashService {
	return &HashService{}
}

// ComputeHashBytes computes the SHA256 hash of bytes
func (s *HashService) ComputeHashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong entity tag for the photo bytes
func (s *HashService) ETag(data []byte) string {
	return `"` + s.ComputeHashBytes(data)[:32] + `"`
}

// MatchesETag reports whether an If-None-Match header value matches etag.
// Weak validators compare equal to their strong form.
func (s *HashService) MatchesETag(ifNoneMatch, etag string) bool {
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
