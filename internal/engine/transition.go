package engine

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"caseflow/internal/domain"
	"caseflow/internal/repo"
)

// Transition is the outcome of a stage move.
type Transition struct {
	From       domain.Stage      `json:"from"`
	To         domain.Stage      `json:"to"`
	Assignment domain.Assignment `json:"assignment"`
	Activity   domain.Activity   `json:"activity"`
}

// MoveCase moves a case to any stage of the same owner. The assignment write
// and the stage_change activity share one transaction. Moving a case to the
// stage it is already in still records an activity.
func (e Engine) MoveCase(ctx context.Context, ownerID, caseID, toStageID string) (Transition, error) {
	if err := requireOwner(ownerID); err != nil {
		return Transition{}, err
	}
	if err := requireID("case_id", caseID); err != nil {
		return Transition{}, err
	}
	if err := requireID("stage_id", toStageID); err != nil {
		return Transition{}, err
	}
	var t Transition
	err := e.withTx(ctx, "move case", func(tx *sql.Tx) error {
		if _, err := e.Repo.GetCase(ctx, tx, ownerID, caseID); err != nil {
			return notFound(err, "case", caseID)
		}
		to, err := e.Repo.GetStage(ctx, tx, ownerID, toStageID)
		if err != nil {
			return notFound(err, "stage", toStageID)
		}
		current, err := e.loadAssignment(ctx, tx, ownerID, caseID)
		if err != nil {
			return err
		}
		t, err = e.move(ctx, tx, ownerID, caseID, current, to)
		return err
	})
	if err != nil {
		e.logger().Warn("move failed",
			zap.String("owner_id", ownerID),
			zap.String("case_id", caseID),
			zap.String("stage_id", toStageID),
			zap.Error(err))
		return Transition{}, err
	}
	e.logger().Info("case moved",
		zap.String("owner_id", ownerID),
		zap.String("case_id", caseID),
		zap.String("from_stage_id", t.From.ID),
		zap.String("stage_id", t.To.ID))
	return t, nil
}

// loadAssignment returns the case's assignment or nil when it has none.
func (e Engine) loadAssignment(ctx context.Context, tx *sql.Tx, ownerID, caseID string) (*domain.Assignment, error) {
	a, err := e.Repo.GetAssignment(ctx, tx, ownerID, caseID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// resolveStage is the read-time placement of a case: the assignment's stage
// when it still exists, otherwise the owner's first stage.
func (e Engine) resolveStage(ctx context.Context, tx *sql.Tx, ownerID string, a *domain.Assignment) (domain.Stage, error) {
	if a != nil {
		s, err := e.Repo.GetStage(ctx, tx, ownerID, a.StageID)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.Stage{}, err
		}
	}
	s, err := e.Repo.FirstStage(ctx, tx, ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Stage{}, ValidationError{Field: "owner_id", Reason: "owner has no stages"}
	}
	return s, err
}

// move writes the assignment and its activity inside tx. current may be nil.
func (e Engine) move(ctx context.Context, tx *sql.Tx, ownerID, caseID string, current *domain.Assignment, to domain.Stage) (Transition, error) {
	from, err := e.resolveStage(ctx, tx, ownerID, current)
	if err != nil {
		return Transition{}, err
	}
	now := e.now()
	a := domain.Assignment{
		CaseID:   caseID,
		OwnerID:  ownerID,
		Priority: domain.PriorityMedium,
	}
	if current != nil {
		a = *current
	}
	a.StageID = to.ID
	a.EnteredAt = now
	a.UpdatedAt = now
	if err := e.Repo.UpsertAssignment(ctx, tx, a); err != nil {
		return Transition{}, err
	}
	act, err := e.activities().StageChange(ctx, tx, ownerID, caseID, from, to)
	if err != nil {
		return Transition{}, err
	}
	return Transition{From: from, To: to, Assignment: a, Activity: act}, nil
}
