package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/repository"
)

func TestGuideService(t *testing.T) {
	ctx := context.Background()

	t.Run("shown until dismissed for good", func(t *testing.T) {
		svc := NewGuideService(newMemoryRecordRepo())

		assert.True(t, svc.ShouldShow(ctx))
		assert.True(t, svc.ShouldShow(ctx), "viewing alone sets nothing")

		require.NoError(t, svc.Dismiss(ctx, true))
		assert.False(t, svc.ShouldShow(ctx))
	})

	t.Run("plain dismissal is not remembered", func(t *testing.T) {
		repo := newMemoryRecordRepo()
		svc := NewGuideService(repo)

		require.NoError(t, svc.Dismiss(ctx, false))
		assert.True(t, svc.ShouldShow(ctx))
		assert.False(t, repo.flags[repository.FlagGuideDismissed])
	})

	t.Run("read failure shows the guide", func(t *testing.T) {
		repo := newMemoryRecordRepo()
		repo.flags[repository.FlagGuideDismissed] = true
		repo.loadErr = models.ErrStore

		assert.True(t, NewGuideService(repo).ShouldShow(ctx))
	})
}
