package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"caseflow/internal/domain"
)

const maxStageName = 120

// ListStages returns the owner's stages ordered by position.
func (e Engine) ListStages(ctx context.Context, ownerID string) ([]domain.Stage, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	stages, err := e.Repo.ListStages(ctx, nil, ownerID)
	if err != nil {
		return nil, classify("list stages", err)
	}
	return stages, nil
}

// CreateDefaultStages inserts the configured seed set with positions 1..N.
// It refuses to run when the owner already has stages.
func (e Engine) CreateDefaultStages(ctx context.Context, ownerID string) ([]domain.Stage, error) {
	stages, created, err := e.seedStages(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ValidationError{Field: "owner_id", Reason: "owner already has stages"}
	}
	return stages, nil
}

// CreateDefaultStagesIfEmpty seeds the default stages the first time an owner
// has none and returns the owner's stages either way.
func (e Engine) CreateDefaultStagesIfEmpty(ctx context.Context, ownerID string) ([]domain.Stage, bool, error) {
	return e.seedStages(ctx, ownerID)
}

func (e Engine) seedStages(ctx context.Context, ownerID string) ([]domain.Stage, bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, false, err
	}
	unlock := e.lockOwner(ownerID)
	defer unlock()

	var (
		stages  []domain.Stage
		created bool
	)
	err := e.withTx(ctx, "seed stages", func(tx *sql.Tx) error {
		existing, err := e.Repo.ListStages(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			stages = existing
			return nil
		}
		now := e.now()
		stages = make([]domain.Stage, 0, len(e.Config.Pipeline.DefaultStages))
		for i, seed := range e.Config.Pipeline.DefaultStages {
			s := domain.Stage{
				ID:          e.newID(),
				OwnerID:     ownerID,
				Name:        strings.TrimSpace(seed.Name),
				Description: seed.Description,
				Color:       seed.Color,
				Position:    i + 1,
				IsDefault:   true,
				IsFinal:     seed.IsFinal,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := e.Repo.InsertStage(ctx, tx, s); err != nil {
				return fmt.Errorf("insert default stage %q: %w", s.Name, err)
			}
			stages = append(stages, s)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		e.logger().Info("default stages created", zap.String("owner_id", ownerID), zap.Int("count", len(stages)))
	}
	return stages, created, nil
}

// StageUpsert carries exactly one of a draft (insert) or an edit (update).
type StageUpsert struct {
	Draft *domain.StageDraft
	Edit  *domain.StageEdit
}

// UpsertStage inserts a draft or edits an existing stage.
func (e Engine) UpsertStage(ctx context.Context, ownerID string, in StageUpsert) (domain.Stage, error) {
	switch {
	case in.Draft != nil && in.Edit != nil:
		return domain.Stage{}, ValidationError{Reason: "stage upsert takes either a draft or an edit, not both"}
	case in.Draft != nil:
		return e.CreateStage(ctx, ownerID, *in.Draft)
	case in.Edit != nil:
		return e.UpdateStage(ctx, ownerID, *in.Edit)
	default:
		return domain.Stage{}, ValidationError{Reason: "stage upsert requires a draft or an edit"}
	}
}

func validateStageName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ValidationError{Field: "name", Reason: "required"}
	}
	if utf8.RuneCountInString(name) > maxStageName {
		return "", ValidationError{Field: "name", Reason: fmt.Sprintf("at most %d characters", maxStageName)}
	}
	return name, nil
}

// CreateStage persists a draft. Position 0, or anything past the end, appends;
// otherwise the stage is inserted there and later stages shift down by one.
func (e Engine) CreateStage(ctx context.Context, ownerID string, d domain.StageDraft) (domain.Stage, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.Stage{}, err
	}
	name, err := validateStageName(d.Name)
	if err != nil {
		return domain.Stage{}, err
	}
	if d.Position < 0 {
		return domain.Stage{}, ValidationError{Field: "position", Reason: "must be positive"}
	}
	unlock := e.lockOwner(ownerID)
	defer unlock()

	now := e.now()
	s := domain.Stage{
		ID:          e.newID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(d.Description),
		Color:       strings.TrimSpace(d.Color),
		IsFinal:     d.IsFinal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = e.withTx(ctx, "create stage", func(tx *sql.Tx) error {
		existing, err := e.Repo.ListStages(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		n := len(existing)
		if d.Position == 0 || d.Position > n {
			s.Position = n + 1
			return e.Repo.InsertStage(ctx, tx, s)
		}
		// Park the new row on position 0, then renumber everything in order.
		s.Position = 0
		if err := e.Repo.InsertStage(ctx, tx, s); err != nil {
			return err
		}
		order := make([]string, 0, n+1)
		for _, st := range existing {
			if st.Position == d.Position {
				order = append(order, s.ID)
			}
			order = append(order, st.ID)
		}
		if err := e.Repo.Renumber(ctx, tx, ownerID, order, now); err != nil {
			return err
		}
		s.Position = d.Position
		return nil
	})
	if err != nil {
		return domain.Stage{}, err
	}
	e.logger().Info("stage created", zap.String("owner_id", ownerID), zap.String("stage_id", s.ID), zap.Int("position", s.Position))
	return s, nil
}

// UpdateStage edits name, description, color and the final flag in place.
// Default stages are editable too; positions only change through ReorderStages.
func (e Engine) UpdateStage(ctx context.Context, ownerID string, edit domain.StageEdit) (domain.Stage, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.Stage{}, err
	}
	if err := requireID("id", edit.ID); err != nil {
		return domain.Stage{}, err
	}
	var s domain.Stage
	err := e.withTx(ctx, "update stage", func(tx *sql.Tx) error {
		current, err := e.Repo.GetStage(ctx, tx, ownerID, edit.ID)
		if err != nil {
			return notFound(err, "stage", edit.ID)
		}
		if edit.Name != nil {
			name, err := validateStageName(*edit.Name)
			if err != nil {
				return err
			}
			current.Name = name
		}
		if edit.Description != nil {
			current.Description = strings.TrimSpace(*edit.Description)
		}
		if edit.Color != nil {
			current.Color = strings.TrimSpace(*edit.Color)
		}
		if edit.IsFinal != nil {
			current.IsFinal = *edit.IsFinal
		}
		current.UpdatedAt = e.now()
		if err := e.Repo.UpdateStage(ctx, tx, current); err != nil {
			return notFound(err, "stage", edit.ID)
		}
		s = current
		return nil
	})
	if err != nil {
		return domain.Stage{}, err
	}
	return s, nil
}

// ReorderStages sets position = index+1 following orderedIDs, which must name
// every stage of the owner exactly once. The whole order is written in one
// transaction while holding the owner lock; concurrent reorders are last-write-wins.
func (e Engine) ReorderStages(ctx context.Context, ownerID string, orderedIDs []string) ([]domain.Stage, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	unlock := e.lockOwner(ownerID)
	defer unlock()

	var stages []domain.Stage
	err := e.withTx(ctx, "reorder stages", func(tx *sql.Tx) error {
		existing, err := e.Repo.ListStages(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if err := validateOrder(existing, orderedIDs); err != nil {
			return err
		}
		if err := e.Repo.Renumber(ctx, tx, ownerID, orderedIDs, e.now()); err != nil {
			return err
		}
		stages, err = e.Repo.ListStages(ctx, tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger().Info("stages reordered", zap.String("owner_id", ownerID), zap.Int("count", len(stages)))
	return stages, nil
}

func validateOrder(existing []domain.Stage, orderedIDs []string) error {
	known := make(map[string]bool, len(existing))
	for _, s := range existing {
		known[s.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return NotFoundError{Kind: "stage", ID: id}
		}
		if seen[id] {
			return ValidationError{Field: "stage_ids", Reason: fmt.Sprintf("stage %s listed twice", id)}
		}
		seen[id] = true
	}
	if len(seen) != len(known) {
		return ValidationError{Field: "stage_ids", Reason: fmt.Sprintf("expected all %d stages, got %d", len(known), len(seen))}
	}
	return nil
}

// StageDeletion reports what DeleteStage did.
type StageDeletion struct {
	Stage        domain.Stage      `json:"stage"`
	ReassignedTo *domain.Stage     `json:"reassigned_to,omitempty"`
	Activities   []domain.Activity `json:"activities"`
}

// DeleteStage removes a non-default stage and closes the position gap. Cases
// sitting in it move to the first remaining stage, each with an activity, so
// no assignment is left pointing at a missing stage.
func (e Engine) DeleteStage(ctx context.Context, ownerID, stageID string) (StageDeletion, error) {
	if err := requireOwner(ownerID); err != nil {
		return StageDeletion{}, err
	}
	if err := requireID("stage_id", stageID); err != nil {
		return StageDeletion{}, err
	}
	unlock := e.lockOwner(ownerID)
	defer unlock()

	var res StageDeletion
	err := e.withTx(ctx, "delete stage", func(tx *sql.Tx) error {
		res = StageDeletion{}
		target, err := e.Repo.GetStage(ctx, tx, ownerID, stageID)
		if err != nil {
			return notFound(err, "stage", stageID)
		}
		if target.IsDefault {
			return ProtectedStageError{StageID: target.ID, Name: target.Name}
		}
		existing, err := e.Repo.ListStages(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if len(existing) == 1 {
			return ValidationError{Field: "stage_id", Reason: "cannot delete the only stage"}
		}
		remaining := make([]string, 0, len(existing)-1)
		var first *domain.Stage
		for i := range existing {
			if existing[i].ID == target.ID {
				continue
			}
			if first == nil {
				first = &existing[i]
			}
			remaining = append(remaining, existing[i].ID)
		}
		assigned, err := e.Repo.ListAssignmentsByStage(ctx, tx, ownerID, target.ID)
		if err != nil {
			return err
		}
		now := e.now()
		for _, a := range assigned {
			a.StageID = first.ID
			a.EnteredAt = now
			a.UpdatedAt = now
			if err := e.Repo.UpsertAssignment(ctx, tx, a); err != nil {
				return err
			}
			act, err := e.activities().Reassigned(ctx, tx, ownerID, a.CaseID, target, *first)
			if err != nil {
				return err
			}
			res.Activities = append(res.Activities, act)
		}
		if err := e.Repo.DeleteStage(ctx, tx, ownerID, target.ID); err != nil {
			return notFound(err, "stage", stageID)
		}
		if err := e.Repo.Renumber(ctx, tx, ownerID, remaining, now); err != nil {
			return err
		}
		res.Stage = target
		if len(assigned) > 0 {
			renumbered, err := e.Repo.GetStage(ctx, tx, ownerID, first.ID)
			if err != nil {
				return err
			}
			res.ReassignedTo = &renumbered
		}
		return nil
	})
	if err != nil {
		return StageDeletion{}, err
	}
	e.logger().Info("stage deleted",
		zap.String("owner_id", ownerID),
		zap.String("stage_id", stageID),
		zap.Int("reassigned", len(res.Activities)))
	return res, nil
}
