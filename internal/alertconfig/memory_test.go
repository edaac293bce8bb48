package alertconfig

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telinsights/pkg/errors"
)

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	cfg := &AlertConfiguration{
		UserID:   "42",
		Name:     "Tech",
		Criteria: Criteria{Type: "frequency", Topics: []string{"technology"}, Threshold: 2},
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, cfg))
	require.NotEmpty(t, cfg.ID)
	assert.False(t, cfg.CreatedAt.IsZero())

	dup := &AlertConfiguration{UserID: "42", Name: "Tech", Criteria: Criteria{Type: "frequency"}}
	assert.ErrorIs(t, repo.Create(ctx, dup), errors.ErrConflict)

	active, err := repo.ListActive(ctx, "frequency")
	require.NoError(t, err)
	require.Len(t, active, 1)

	other, err := repo.ListActive(ctx, "digest")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, repo.SetActive(ctx, cfg.ID, false))

	active, err = repo.ListActive(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, active)

	byUser, err := repo.ListByUser(ctx, "42", false)
	require.NoError(t, err)
	assert.Empty(t, byUser)

	byUser, err = repo.ListByUser(ctx, "42", true)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.False(t, byUser[0].IsActive)

	assert.ErrorIs(t, repo.SetActive(ctx, "missing", true), errors.ErrNotFound)
	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMemoryRepository_UpdateKeepsOwnership(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return created }

	cfg := &AlertConfiguration{UserID: "7", Name: "A", Criteria: Criteria{Type: "frequency"}, IsActive: true}
	require.NoError(t, repo.Create(ctx, cfg))

	repo.now = func() time.Time { return created.Add(time.Hour) }
	update := &AlertConfiguration{ID: cfg.ID, UserID: "someone-else", Name: "B", Criteria: Criteria{Type: "frequency", Threshold: 9}, IsActive: true}
	require.NoError(t, repo.Update(ctx, update))

	got, err := repo.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "7", got.UserID)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, 9, got.Criteria.Threshold)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), got.UpdatedAt)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	cfg := &AlertConfiguration{UserID: "1", Name: "A", Criteria: Criteria{Type: "frequency", Keywords: []string{"x"}}, IsActive: true}
	require.NoError(t, repo.Create(ctx, cfg))

	got, err := repo.Get(ctx, cfg.ID)
	require.NoError(t, err)
	got.Criteria.Keywords[0] = "mutated"

	again, err := repo.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Criteria.Keywords)
}
