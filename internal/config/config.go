package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models caseflow.yml.
type Config struct {
	Pipeline struct {
		DefaultStages []StageSeed `yaml:"default_stages"`
	} `yaml:"pipeline"`
	Server struct {
		Addr             string `yaml:"addr"`
		BasePath         string `yaml:"base_path"`
		AllowOwnerHeader bool   `yaml:"allow_owner_header"`
	} `yaml:"server"`
	Store struct {
		BusyRetry time.Duration `yaml:"busy_retry"`
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// StageSeed is one entry of the default stage set created for new owners.
type StageSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	IsFinal     bool   `yaml:"is_final"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with cf config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOrDefault returns the workspace config, or the defaults when the file does not exist.
func LoadOrDefault(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Pipeline.DefaultStages) == 0 {
		return fmt.Errorf("config.pipeline.default_stages must list at least one stage")
	}
	seen := map[string]bool{}
	for i, s := range c.Pipeline.DefaultStages {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("config.pipeline.default_stages[%d].name is required", i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("config.pipeline.default_stages has duplicate stage %q", name)
		}
		seen[key] = true
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Store.BusyRetry < 0 {
		return fmt.Errorf("config.store.busy_retry must not be negative")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config.log.format must be console or json")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "caseflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `pipeline:
  default_stages:
    - name: Consulta Inicial
      description: "Primeiro atendimento e coleta de informações do cliente"
      color: "#6366f1"
    - name: Análise de Documentos
      description: "Revisão dos documentos e provas apresentados"
      color: "#8b5cf6"
    - name: Proposta de Honorários
      description: "Proposta enviada ao cliente"
      color: "#a855f7"
    - name: Contrato Assinado
      description: "Contrato de honorários assinado"
      color: "#d946ef"
    - name: Elaboração da Petição
      description: "Redação da petição inicial"
      color: "#ec4899"
    - name: Protocolado
      description: "Ação distribuída no tribunal"
      color: "#f43f5e"
    - name: Aguardando Citação
      description: "Aguardando citação da parte contrária"
      color: "#f97316"
    - name: Audiência
      description: "Audiência de conciliação ou instrução designada"
      color: "#f59e0b"
    - name: Instrução Processual
      description: "Produção de provas e manifestações"
      color: "#eab308"
    - name: Sentença
      description: "Aguardando ou analisando sentença"
      color: "#84cc16"
    - name: Recurso
      description: "Fase recursal"
      color: "#22c55e"
    - name: Encerrado
      description: "Caso concluído e arquivado"
      color: "#10b981"
      is_final: true

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  allow_owner_header: false

store:
  busy_retry: 2s

log:
  level: info
  format: console
`
