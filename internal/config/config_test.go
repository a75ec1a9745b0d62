package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeedsTwelveStages(t *testing.T) {
	cfg := Default()
	stages := cfg.Pipeline.DefaultStages
	require.Len(t, stages, 12)
	assert.Equal(t, "Consulta Inicial", stages[0].Name)
	assert.Equal(t, "Aguardando Citação", stages[6].Name)
	assert.True(t, stages[11].IsFinal)
	for _, s := range stages[:11] {
		assert.False(t, s.IsFinal, s.Name)
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"no stages": `pipeline:
  default_stages: []
`,
		"blank name": `pipeline:
  default_stages:
    - name: "  "
`,
		"duplicate": `pipeline:
  default_stages:
    - name: Protocolado
    - name: protocolado
`,
		"base path": `pipeline:
  default_stages:
    - name: A
server:
  base_path: v0
`,
		"log level": `pipeline:
  default_stages:
    - name: A
log:
  level: loud
`,
	}
	for name, doc := range cases {
		_, err := FromYAML([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestFromYAMLDurations(t *testing.T) {
	cfg, err := FromYAML([]byte(`pipeline:
  default_stages:
    - name: Triagem
store:
  busy_retry: 750ms
`))
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.BusyRetry)
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(dir)
	require.NoError(t, err)
	assert.Len(t, cfg.Pipeline.DefaultStages, 12)

	_, err = Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "caseflow.yml"), []byte(`pipeline:
  default_stages:
    - name: Triagem
    - name: Arquivo
      is_final: true
`), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Pipeline.DefaultStages, 2)
	assert.True(t, cfg.Pipeline.DefaultStages[1].IsFinal)
}
