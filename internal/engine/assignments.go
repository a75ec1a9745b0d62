package engine

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"caseflow/internal/domain"
)

// AssignmentPatch holds the optional fields of an assignment write. Nil means
// unchanged; the Clear flags null the column.
type AssignmentPatch struct {
	StageID      *string
	Priority     *domain.Priority
	DueDate      *time.Time
	ClearDueDate bool
	Notes        *string
	ClearNotes   bool
}

// AssignmentResult is the stored row plus the transition, when the patch moved the case.
type AssignmentResult struct {
	Assignment domain.Assignment `json:"assignment"`
	Transition *Transition       `json:"transition,omitempty"`
}

func (e Engine) GetAssignment(ctx context.Context, ownerID, caseID string) (domain.Assignment, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.Assignment{}, err
	}
	if err := requireID("case_id", caseID); err != nil {
		return domain.Assignment{}, err
	}
	a, err := e.Repo.GetAssignment(ctx, nil, ownerID, caseID)
	if err != nil {
		return domain.Assignment{}, classify("get assignment", notFound(err, "assignment", caseID))
	}
	return a, nil
}

// CurrentStage resolves where a case is displayed. A case with no assignment,
// or one pointing at a stage that no longer exists, resolves to the first
// stage. Nothing is written.
func (e Engine) CurrentStage(ctx context.Context, ownerID, caseID string) (domain.Stage, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.Stage{}, err
	}
	if _, err := e.Repo.GetCase(ctx, nil, ownerID, caseID); err != nil {
		return domain.Stage{}, classify("current stage", notFound(err, "case", caseID))
	}
	a, err := e.loadAssignment(ctx, nil, ownerID, caseID)
	if err != nil {
		return domain.Stage{}, classify("current stage", err)
	}
	s, err := e.resolveStage(ctx, nil, ownerID, a)
	if err != nil {
		return domain.Stage{}, classify("current stage", err)
	}
	return s, nil
}

// UpsertAssignment creates or patches a case's assignment. A new row without a
// stage starts in the first stage. A stage change goes through the same path
// as MoveCase, so it is recorded as an activity.
func (e Engine) UpsertAssignment(ctx context.Context, ownerID, caseID string, p AssignmentPatch) (AssignmentResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return AssignmentResult{}, err
	}
	if err := requireID("case_id", caseID); err != nil {
		return AssignmentResult{}, err
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return AssignmentResult{}, ValidationError{Field: "priority", Reason: "must be one of low, medium, high, urgent"}
	}
	if p.StageID != nil && strings.TrimSpace(*p.StageID) == "" {
		return AssignmentResult{}, ValidationError{Field: "stage_id", Reason: "must not be empty"}
	}

	var res AssignmentResult
	err := e.withTx(ctx, "upsert assignment", func(tx *sql.Tx) error {
		res = AssignmentResult{}
		if _, err := e.Repo.GetCase(ctx, tx, ownerID, caseID); err != nil {
			return notFound(err, "case", caseID)
		}
		current, err := e.loadAssignment(ctx, tx, ownerID, caseID)
		if err != nil {
			return err
		}
		if p.StageID != nil && (current == nil || current.StageID != *p.StageID) {
			to, err := e.Repo.GetStage(ctx, tx, ownerID, *p.StageID)
			if err != nil {
				return notFound(err, "stage", *p.StageID)
			}
			t, err := e.move(ctx, tx, ownerID, caseID, current, to)
			if err != nil {
				return err
			}
			res.Transition = &t
			current = &t.Assignment
		}
		now := e.now()
		a := domain.Assignment{CaseID: caseID, OwnerID: ownerID, Priority: domain.PriorityMedium, EnteredAt: now}
		if current != nil {
			a = *current
		} else {
			first, err := e.resolveStage(ctx, tx, ownerID, nil)
			if err != nil {
				return err
			}
			a.StageID = first.ID
		}
		applyPatch(&a, p)
		a.UpdatedAt = now
		if err := e.Repo.UpsertAssignment(ctx, tx, a); err != nil {
			return err
		}
		res.Assignment = a
		if res.Transition != nil {
			res.Transition.Assignment = a
		}
		return nil
	})
	if err != nil {
		return AssignmentResult{}, err
	}
	e.logger().Debug("assignment saved",
		zap.String("owner_id", ownerID),
		zap.String("case_id", caseID),
		zap.String("stage_id", res.Assignment.StageID))
	return res, nil
}

func applyPatch(a *domain.Assignment, p AssignmentPatch) {
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		a.DueDate = nil
	case p.DueDate != nil:
		d := time.Date(p.DueDate.Year(), p.DueDate.Month(), p.DueDate.Day(), 0, 0, 0, 0, time.UTC)
		a.DueDate = &d
	}
	switch {
	case p.ClearNotes:
		a.Notes = nil
	case p.Notes != nil:
		n := *p.Notes
		a.Notes = &n
	}
}
