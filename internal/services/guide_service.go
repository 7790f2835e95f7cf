package services

import (
	"context"

	"github.com/parkit/server/internal/observability"
	"github.com/parkit/server/internal/repository"
)

// GuideService decides whether the first-run help guide is shown.
// The flag is only set on explicit dismissal with "don't show again" ticked.
type GuideService struct {
	store repository.RecordRepo
}

// NewGuideService creates a new GuideService
func NewGuideService(store repository.RecordRepo) *GuideService {
	return &GuideService{store: store}
}

// ShouldShow reports whether the guide should be displayed. Storage
// failures show the guide.
func (s *GuideService) ShouldShow(ctx context.Context) bool {
	dismissed, err := s.store.GetFlag(ctx, repository.FlagGuideDismissed)
	if err != nil {
		observability.Warnf("Failed to read guide flag: %v", err)
		return true
	}
	return !dismissed
}

// Dismiss closes the guide; the choice is remembered only when dontShowAgain is set
func (s *GuideService) Dismiss(ctx context.Context, dontShowAgain bool) error {
	if !dontShowAgain {
		return nil
	}
	return s.store.SetFlag(ctx, repository.FlagGuideDismissed, true)
}
