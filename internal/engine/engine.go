package engine

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"caseflow/internal/activity"
	"caseflow/internal/config"
	"caseflow/internal/db"
	"caseflow/internal/logging"
	"caseflow/internal/repo"
)

// Engine is the pipeline service: stage store, assignments, transitions and
// checklists for every owner. It keeps no per-request state; callers apply
// their own optimistic updates and roll them back on error.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Config *config.Config
	Log    *zap.Logger
	Now    func() time.Time
	NewID  func() string

	locks *ownerLocks
}

func New(conn *sql.DB, cfg *config.Config, logger *zap.Logger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     conn,
		Repo:   repo.Repo{DB: conn},
		Config: cfg,
		Log:    logging.OrNop(logger),
		Now:    time.Now,
		NewID:  func() string { return uuid.NewString() },
		locks:  &ownerLocks{m: map[string]*sync.Mutex{}},
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// activities returns a writer bound to the engine's current clock and id source.
func (e Engine) activities() activity.Writer {
	return activity.Writer{Repo: e.Repo, Now: e.now, NewID: e.newID}
}

func (e Engine) logger() *zap.Logger {
	return logging.OrNop(e.Log)
}

// withTx runs fn in one transaction and classifies the resulting error.
func (e Engine) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var wait time.Duration
	if e.Config != nil {
		wait = e.Config.Store.BusyRetry
	}
	err := db.WithTx(ctx, e.DB, wait, fn)
	if err != nil {
		err = classify(op, err)
		e.logger().Debug("transaction failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// lockOwner serializes stage-order mutations for one owner.
func (e Engine) lockOwner(ownerID string) func() {
	if e.locks == nil {
		return func() {}
	}
	return e.locks.lock(ownerID)
}

type ownerLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *ownerLocks) lock(ownerID string) func() {
	l.mu.Lock()
	mu, ok := l.m[ownerID]
	if !ok {
		mu = &sync.Mutex{}
		l.m[ownerID] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ValidationError{Field: "owner_id", Reason: "required"}
	}
	return nil
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return ValidationError{Field: field, Reason: "required"}
	}
	return nil
}
