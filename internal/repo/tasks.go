package repo

import (
	"context"
	"database/sql"

	"caseflow/internal/domain"
)

const taskColumns = `id,case_id,owner_id,title,is_completed,completed_at,created_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var completed int
	var completedAt sql.NullString
	var createdAt string
	if err := row.Scan(&t.ID, &t.CaseID, &t.OwnerID, &t.Title, &completed, &completedAt, &createdAt); err != nil {
		return t, notFoundIfNoRows(err)
	}
	t.IsCompleted = completed == 1
	var err error
	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return t, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, err
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO case_tasks(id,case_id,owner_id,title,is_completed,completed_at,created_at) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.CaseID, t.OwnerID, t.Title, boolInt(t.IsCompleted), nullableTimePtr(t.CompletedAt), formatTime(t.CreatedAt))
	return err
}

func (r Repo) GetTask(ctx context.Context, tx *sql.Tx, ownerID, id string) (domain.Task, error) {
	return scanTask(r.q(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM case_tasks WHERE owner_id=? AND id=?`, ownerID, id))
}

// ListTasks returns a case's checklist in creation order.
func (r Repo) ListTasks(ctx context.Context, ownerID, caseID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM case_tasks WHERE owner_id=? AND case_id=? ORDER BY created_at ASC, rowid ASC`, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) SetTaskCompletion(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE case_tasks SET is_completed=?, completed_at=? WHERE owner_id=? AND id=?`,
		boolInt(t.IsCompleted), nullableTimePtr(t.CompletedAt), t.OwnerID, t.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, ownerID, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM case_tasks WHERE owner_id=? AND id=?`, ownerID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
