package services

import (
	"context"
	"fmt"
	"time"

	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/observability"
)

// Locator is a one-shot, best-effort source of coordinates
type Locator interface {
	Locate(ctx context.Context) (*models.Coordinates, error)
}

// LocatorFunc adapts a function to Locator
type LocatorFunc func(ctx context.Context) (*models.Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (*models.Coordinates, error) {
	return f(ctx)
}

// FixLocator serves a fix reported by the client alongside the photo
type FixLocator struct {
	Fix    *models.Coordinates
	MaxAge time.Duration
	Now    func() time.Time
}

func (l FixLocator) Locate(_ context.Context) (*models.Coordinates, error) {
	if l.Fix == nil {
		return nil, fmt.Errorf("%w: no client fix", models.ErrGeolocationUnavailable)
	}
	if err := l.Fix.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGeolocationUnavailable, err)
	}
	if l.MaxAge > 0 && l.Fix.FixedAt != nil {
		now := time.Now
		if l.Now != nil {
			now = l.Now
		}
		if age := now().Sub(*l.Fix.FixedAt); age > l.MaxAge {
			return nil, fmt.Errorf("%w: fix is %s old", models.ErrGeolocationUnavailable, age.Round(time.Second))
		}
	}

	fix := *l.Fix
	fix.Source = models.LocationSourceClient
	return &fix, nil
}

// EXIFLocator reads GPS tags embedded in the uploaded photo
type EXIFLocator struct {
	Data []byte
	EXIF *EXIFService
}

func (l EXIFLocator) Locate(_ context.Context) (*models.Coordinates, error) {
	meta := l.EXIF.ExtractFromBytes(l.Data)
	if meta.Location == nil {
		return nil, fmt.Errorf("%w: no GPS tags", models.ErrGeolocationUnavailable)
	}
	return meta.Location, nil
}

// ChainLocator returns the first fix any of its locators produces
type ChainLocator []Locator

func (c ChainLocator) Locate(ctx context.Context) (*models.Coordinates, error) {
	lastErr := error(models.ErrGeolocationUnavailable)
	for _, l := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		coords, err := l.Locate(ctx)
		if err == nil && coords != nil {
			return coords, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return nil, lastErr
}

// GeolocationService resolves best-effort locations for captures
type GeolocationService struct {
	timeout time.Duration
	maxAge  time.Duration
	exif    *EXIFService
	now     func() time.Time
}

// NewGeolocationService creates a new GeolocationService
func NewGeolocationService(timeout, maxAge time.Duration, exifService *EXIFService) *GeolocationService {
	return &GeolocationService{
		timeout: timeout,
		maxAge:  maxAge,
		exif:    exifService,
		now:     time.Now,
	}
}

// LocatorFor builds the locator for one capture: the client's fix when it
// is fresh enough, else the photo's own GPS tags.
func (s *GeolocationService) LocatorFor(fix *models.Coordinates, photo []byte) Locator {
	return ChainLocator{
		FixLocator{Fix: fix, MaxAge: s.maxAge, Now: s.now},
		EXIFLocator{Data: photo, EXIF: s.exif},
	}
}

// TryGetLocation starts acquisition and returns a channel that yields
// exactly one value: the fix, or nil when none arrived within the timeout.
// Failures are logged and never returned.
func (s *GeolocationService) TryGetLocation(ctx context.Context, locator Locator) <-chan *models.Coordinates {
	out := make(chan *models.Coordinates, 1)
	if locator == nil {
		out <- nil
		return out
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		result := make(chan *models.Coordinates, 1)
		go func() {
			coords, err := locator.Locate(ctx)
			if err != nil {
				observability.Debugf("Location unavailable: %v", err)
				coords = nil
			}
			result <- coords
		}()

		select {
		case coords := <-result:
			out <- coords
		case <-ctx.Done():
			observability.Warnf("Location lookup abandoned after %s: %v", s.timeout, ctx.Err())
			out <- nil
		}
	}()

	return out
}
