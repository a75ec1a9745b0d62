package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"caseflow/internal/domain"
)

const stageColumns = `id,owner_id,name,COALESCE(description,''),COALESCE(color,''),position,is_default,is_final,created_at,updated_at`

func scanStage(row rowScanner) (domain.Stage, error) {
	var s domain.Stage
	var isDefault, isFinal int
	var createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.Color, &s.Position, &isDefault, &isFinal, &createdAt, &updatedAt); err != nil {
		return s, notFoundIfNoRows(err)
	}
	s.IsDefault = isDefault == 1
	s.IsFinal = isFinal == 1
	var err error
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return s, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return s, err
	}
	return s, nil
}

// ListStages returns the owner's stages ordered by position.
func (r Repo) ListStages(ctx context.Context, tx *sql.Tx, ownerID string) ([]domain.Stage, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE owner_id=? ORDER BY position ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) GetStage(ctx context.Context, tx *sql.Tx, ownerID, id string) (domain.Stage, error) {
	return scanStage(r.q(tx).QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE owner_id=? AND id=?`, ownerID, id))
}

// FirstStage returns the stage at position 1.
func (r Repo) FirstStage(ctx context.Context, tx *sql.Tx, ownerID string) (domain.Stage, error) {
	return scanStage(r.q(tx).QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE owner_id=? ORDER BY position ASC LIMIT 1`, ownerID))
}

func (r Repo) CountStages(ctx context.Context, tx *sql.Tx, ownerID string) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM stages WHERE owner_id=?`, ownerID).Scan(&n)
	return n, err
}

func (r Repo) InsertStage(ctx context.Context, tx *sql.Tx, s domain.Stage) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO stages(id,owner_id,name,description,color,position,is_default,is_final,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.OwnerID, s.Name, nullable(s.Description), nullable(s.Color), s.Position,
		boolInt(s.IsDefault), boolInt(s.IsFinal), formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	return err
}

// UpdateStage rewrites the editable columns; position is owned by Renumber.
func (r Repo) UpdateStage(ctx context.Context, tx *sql.Tx, s domain.Stage) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE stages SET name=?, description=?, color=?, is_final=?, updated_at=? WHERE owner_id=? AND id=?`,
		s.Name, nullable(s.Description), nullable(s.Color), boolInt(s.IsFinal), formatTime(s.UpdatedAt), s.OwnerID, s.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) DeleteStage(ctx context.Context, tx *sql.Tx, ownerID, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM stages WHERE owner_id=? AND id=?`, ownerID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Renumber assigns position index+1 to each id in order and must run inside
// tx. Positions are first parked on negative values so the (owner_id,
// position) unique index never observes a duplicate mid-update.
func (r Repo) Renumber(ctx context.Context, tx *sql.Tx, ownerID string, orderedIDs []string, now time.Time) error {
	for i, id := range orderedIDs {
		res, err := tx.ExecContext(ctx, `UPDATE stages SET position=? WHERE owner_id=? AND id=?`, -(i + 1), ownerID, id)
		if err != nil {
			return fmt.Errorf("park stage %s: %w", id, err)
		}
		if err := requireAffected(res); err != nil {
			return fmt.Errorf("park stage %s: %w", id, err)
		}
	}
	_, err := tx.ExecContext(ctx, `UPDATE stages SET position=-position, updated_at=? WHERE owner_id=? AND position<0`, formatTime(now), ownerID)
	return err
}
