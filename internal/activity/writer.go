package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/domain"
	"caseflow/internal/repo"
)

// Writer appends activities inside the caller's transaction. Activities are
// never updated or deleted.
type Writer struct {
	Repo  repo.Repo
	Now   func() time.Time
	NewID func() string
}

// Entry is the caller-supplied part of an activity.
type Entry struct {
	CaseID      string
	OwnerID     string
	Type        string
	Description string
	FromStageID string
	ToStageID   string
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, e Entry) (domain.Activity, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if w.NewID == nil {
		w.NewID = func() string { return uuid.NewString() }
	}
	if e.CaseID == "" || e.OwnerID == "" || e.Type == "" {
		return domain.Activity{}, fmt.Errorf("activity requires case, owner and type")
	}
	a := domain.Activity{
		ID:           w.NewID(),
		CaseID:       e.CaseID,
		OwnerID:      e.OwnerID,
		ActivityType: e.Type,
		Description:  e.Description,
		FromStageID:  optional(e.FromStageID),
		ToStageID:    optional(e.ToStageID),
		CreatedAt:    w.Now().UTC(),
	}
	if err := w.Repo.InsertActivity(ctx, tx, a); err != nil {
		return domain.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

// StageChange records a move between two stages.
func (w Writer) StageChange(ctx context.Context, tx *sql.Tx, ownerID, caseID string, from, to domain.Stage) (domain.Activity, error) {
	return w.Append(ctx, tx, Entry{
		CaseID:      caseID,
		OwnerID:     ownerID,
		Type:        domain.ActivityStageChange,
		Description: MoveDescription(from.Name, to.Name),
		FromStageID: from.ID,
		ToStageID:   to.ID,
	})
}

// Reassigned records a case pushed out of a deleted stage.
func (w Writer) Reassigned(ctx context.Context, tx *sql.Tx, ownerID, caseID string, deleted, to domain.Stage) (domain.Activity, error) {
	return w.Append(ctx, tx, Entry{
		CaseID:      caseID,
		OwnerID:     ownerID,
		Type:        domain.ActivityStageReassigned,
		Description: fmt.Sprintf("Stage %q was deleted; moved to %q", deleted.Name, to.Name),
		FromStageID: deleted.ID,
		ToStageID:   to.ID,
	})
}

// MoveDescription is the human-readable summary of a stage change.
func MoveDescription(fromName, toName string) string {
	return fmt.Sprintf("Moved from %q to %q", fromName, toName)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
