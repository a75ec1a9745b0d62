package repo

import (
	"context"
	"database/sql"

	"caseflow/internal/domain"
)

const assignmentColumns = `case_id,owner_id,stage_id,priority,due_date,notes,entered_at,updated_at`

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var a domain.Assignment
	var priority, enteredAt, updatedAt string
	var dueDate, notes sql.NullString
	if err := row.Scan(&a.CaseID, &a.OwnerID, &a.StageID, &priority, &dueDate, &notes, &enteredAt, &updatedAt); err != nil {
		return a, notFoundIfNoRows(err)
	}
	a.Priority = domain.Priority(priority)
	if notes.Valid {
		a.Notes = &notes.String
	}
	var err error
	if a.DueDate, err = parseNullDate(dueDate); err != nil {
		return a, err
	}
	if a.EnteredAt, err = parseTime(enteredAt); err != nil {
		return a, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return a, err
	}
	return a, nil
}

func (r Repo) GetAssignment(ctx context.Context, tx *sql.Tx, ownerID, caseID string) (domain.Assignment, error) {
	return scanAssignment(r.q(tx).QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM pipeline_assignments WHERE owner_id=? AND case_id=?`, ownerID, caseID))
}

// UpsertAssignment writes the full row keyed by case_id.
func (r Repo) UpsertAssignment(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO pipeline_assignments(case_id,owner_id,stage_id,priority,due_date,notes,entered_at,updated_at)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(case_id) DO UPDATE SET stage_id=excluded.stage_id, priority=excluded.priority, due_date=excluded.due_date,
notes=excluded.notes, entered_at=excluded.entered_at, updated_at=excluded.updated_at`,
		a.CaseID, a.OwnerID, a.StageID, string(a.Priority), formatDate(a.DueDate), nullableStringPtr(a.Notes),
		formatTime(a.EnteredAt), formatTime(a.UpdatedAt))
	return err
}

func (r Repo) ListAssignments(ctx context.Context, tx *sql.Tx, ownerID string) ([]domain.Assignment, error) {
	return r.listAssignments(ctx, tx, `SELECT `+assignmentColumns+` FROM pipeline_assignments WHERE owner_id=? ORDER BY case_id`, ownerID)
}

// ListAssignmentsByStage returns the assignments currently pointing at stageID.
func (r Repo) ListAssignmentsByStage(ctx context.Context, tx *sql.Tx, ownerID, stageID string) ([]domain.Assignment, error) {
	return r.listAssignments(ctx, tx, `SELECT `+assignmentColumns+` FROM pipeline_assignments WHERE owner_id=? AND stage_id=? ORDER BY case_id`, ownerID, stageID)
}

func (r Repo) listAssignments(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.q(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) CountAssignments(ctx context.Context, tx *sql.Tx, ownerID string) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM pipeline_assignments WHERE owner_id=?`, ownerID).Scan(&n)
	return n, err
}
