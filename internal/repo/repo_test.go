package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/db"
	"caseflow/internal/domain"
	"caseflow/internal/migrate"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return Repo{DB: conn}
}

func insertStages(t *testing.T, r Repo, ownerID string, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("%s-s%d", ownerID, i+1)
		require.NoError(t, r.InsertStage(context.Background(), nil, domain.Stage{
			ID: ids[i], OwnerID: ownerID, Name: fmt.Sprintf("Stage %d", i+1),
			Position: i + 1, CreatedAt: now, UpdatedAt: now,
		}))
	}
	return ids
}

func TestRenumberReversesWithoutCollisions(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	ids := insertStages(t, r, "o1", 4)
	other := insertStages(t, r, "o2", 2)

	reversed := []string{ids[3], ids[2], ids[1], ids[0]}
	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.Renumber(ctx, tx, "o1", reversed, now.Add(time.Minute)))
	require.NoError(t, tx.Commit())

	stages, err := r.ListStages(ctx, nil, "o1")
	require.NoError(t, err)
	for i, s := range stages {
		assert.Equal(t, reversed[i], s.ID)
		assert.Equal(t, i+1, s.Position)
		assert.True(t, s.UpdatedAt.Equal(now.Add(time.Minute)))
	}
	first, err := r.FirstStage(ctx, nil, "o1")
	require.NoError(t, err)
	assert.Equal(t, ids[3], first.ID)

	untouched, err := r.ListStages(ctx, nil, "o2")
	require.NoError(t, err)
	assert.Equal(t, other[0], untouched[0].ID)
	assert.True(t, untouched[0].UpdatedAt.Equal(now))
}

func TestRenumberRejectsForeignStage(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	ids := insertStages(t, r, "o1", 2)
	other := insertStages(t, r, "o2", 1)

	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	err = r.Renumber(ctx, tx, "o1", []string{ids[0], other[0]}, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicatePositionIsRejected(t *testing.T) {
	r := newRepo(t)
	insertStages(t, r, "o1", 2)
	err := r.InsertStage(context.Background(), nil, domain.Stage{
		ID: "dup", OwnerID: "o1", Name: "Dup", Position: 2, CreatedAt: now, UpdatedAt: now,
	})
	assert.Error(t, err)
}

func TestUpsertCaseNeverChangesOwner(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	c := domain.Case{ID: "c1", OwnerID: "o1", ClientID: "cli", ClientName: "Maria", CreatedAt: now}
	require.NoError(t, r.UpsertCase(ctx, nil, c))

	c.OwnerID = "o2"
	c.ClientName = "Intruso"
	assert.ErrorIs(t, r.UpsertCase(ctx, nil, c), ErrNotFound)

	got, err := r.GetCase(ctx, nil, "o1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Maria", got.ClientName)
	_, err = r.GetCase(ctx, nil, "o2", "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignmentDueDateRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	ids := insertStages(t, r, "o1", 1)
	require.NoError(t, r.UpsertCase(ctx, nil, domain.Case{ID: "c1", OwnerID: "o1", ClientID: "cli", ClientName: "Maria", CreatedAt: now}))

	due := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	notes := "urgente"
	a := domain.Assignment{CaseID: "c1", OwnerID: "o1", StageID: ids[0], Priority: domain.PriorityHigh, DueDate: &due, Notes: &notes, EnteredAt: now, UpdatedAt: now}
	require.NoError(t, r.UpsertAssignment(ctx, nil, a))

	got, err := r.GetAssignment(ctx, nil, "o1", "c1")
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-05-02", got.DueDate.Format(domain.DateLayout))
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)

	a.DueDate, a.Notes = nil, nil
	require.NoError(t, r.UpsertAssignment(ctx, nil, a))
	got, err = r.GetAssignment(ctx, nil, "o1", "c1")
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
	assert.Nil(t, got.Notes)

	n, err := r.CountAssignments(ctx, nil, "o1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
