package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/domain"
)

func TestResolveStage(t *testing.T) {
	stages := []domain.Stage{
		{ID: "a1", Name: "Consulta Inicial", Position: 1},
		{ID: "b2", Name: "Protocolado", Position: 2},
	}
	for ref, want := range map[string]string{"b2": "b2", "1": "a1", "protocolado": "b2", " Consulta Inicial ": "a1"} {
		got, err := resolveStage(stages, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, got.ID, ref)
	}
	_, err := resolveStage(stages, "9")
	assert.Error(t, err)
}

func TestReadCaseFileAcceptsBothShapes(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.yml")
	require.NoError(t, os.WriteFile(list, []byte(`- id: c1
  client_id: cli-1
  client_name: Maria Souza
  process_number: 0001234-55.2024
`), 0o644))
	wrapped := filepath.Join(dir, "wrapped.yml")
	require.NoError(t, os.WriteFile(wrapped, []byte(`cases:
  - id: c2
    client_id: cli-2
    client_name: João Lima
    action_type: civel
`), 0o644))

	got, err := readCaseFile(list)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0001234-55.2024", got[0].ProcessNumber)

	got, err = readCaseFile(wrapped)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "civel", got[0].ActionType)
}
