package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/db"
	"caseflow/internal/domain"
	"caseflow/internal/migrate"
	"caseflow/internal/repo"
)

func TestWriterAppendsStageChange(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))
	ctx := context.Background()
	r := repo.Repo{DB: conn}
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.UpsertCase(ctx, nil, domain.Case{ID: "c1", OwnerID: "o1", ClientID: "cli", ClientName: "Maria", CreatedAt: at}))

	w := Writer{Repo: r, Now: func() time.Time { return at }, NewID: func() string { return "act-1" }}
	from := domain.Stage{ID: "s1", Name: "Consulta Inicial"}
	to := domain.Stage{ID: "s7", Name: "Aguardando Citação"}
	a, err := w.StageChange(ctx, nil, "o1", "c1", from, to)
	require.NoError(t, err)
	assert.Equal(t, "act-1", a.ID)
	assert.Equal(t, domain.ActivityStageChange, a.ActivityType)
	assert.Equal(t, `Moved from "Consulta Inicial" to "Aguardando Citação"`, a.Description)

	got, err := r.ListActivities(ctx, "o1", "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", *got[0].FromStageID)
	assert.Equal(t, "s7", *got[0].ToStageID)
	assert.True(t, got[0].CreatedAt.Equal(at))

	none, err := r.ListActivities(ctx, "o2", "c1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendRequiresCaseOwnerAndType(t *testing.T) {
	_, err := Writer{}.Append(context.Background(), nil, Entry{CaseID: "c1", OwnerID: "o1"})
	assert.Error(t, err)
}
