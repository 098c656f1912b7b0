package announcements

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dabbahouse/foodorder/internal/app/domain/announcement"
	"github.com/dabbahouse/foodorder/internal/app/storage/memory"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/testutil"
)

func newService() *Service {
	log := testutil.QuietLogger("announcements-test")
	return New(memory.New(), log)
}

func TestCreateDefaultsToActive(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	a, err := svc.Create(ctx, 1, "Eid hours", "Open until 2am", nil)
	require.NoError(t, err)
	assert.True(t, a.Active)
	assert.Equal(t, int64(1), a.CreatedBy)

	_, err = svc.Create(ctx, 1, "", "body", nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	_, err = svc.Create(ctx, 1, "title", "  ", nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestListActiveHidesInactive(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	off := false
	_, err := svc.Create(ctx, 1, "Draft", "not yet", &off)
	require.NoError(t, err)
	live, err := svc.Create(ctx, 1, "Live", "now", nil)
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, live.ID, active[0].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	a, err := svc.Create(ctx, 1, "Title", "Message", nil)
	require.NoError(t, err)

	off := false
	updated, err := svc.Update(ctx, a.ID, announcement.Patch{Active: &off})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "Title", updated.Title)

	_, err = svc.Update(ctx, 42, announcement.Patch{Active: &off})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, a.ID), apperrors.ErrNotFound))
}
