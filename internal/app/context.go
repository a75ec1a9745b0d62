package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"caseflow/internal/config"
	"caseflow/internal/db"
	"caseflow/internal/engine"
	"caseflow/internal/logging"
	"caseflow/internal/migrate"
)

// Options tune Open. Empty log fields fall back to the workspace config.
type Options struct {
	Workspace string
	LogLevel  string
	LogFormat string
}

// Context is an opened workspace: config, logger, migrated database and engine.
type Context struct {
	Workspace string
	Config    *config.Config
	Log       *zap.Logger
	DB        *sql.DB
	Engine    engine.Engine
}

// Open loads caseflow.yml (or the defaults when absent), builds the logger,
// opens and migrates the workspace database and wires the engine.
func Open(ctx context.Context, opts Options) (*Context, error) {
	cfg, err := config.LoadOrDefault(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}
	logger, err := logging.New(level, format)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	version, err := migrate.Version(ctx, conn)
	if err == nil {
		logger.Debug("workspace opened", zap.String("db", db.Path(opts.Workspace)), zap.Int("schema_version", version))
	}
	return &Context{
		Workspace: opts.Workspace,
		Config:    cfg,
		Log:       logger,
		DB:        conn,
		Engine:    engine.New(conn, cfg, logger),
	}, nil
}

func (c *Context) Close() error {
	_ = c.Log.Sync()
	return c.DB.Close()
}
