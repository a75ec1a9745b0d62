package repo

import (
	"context"
	"database/sql"

	"caseflow/internal/domain"
)

func (r Repo) InsertActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO activities(id,case_id,owner_id,activity_type,description,from_stage_id,to_stage_id,created_at)
VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.CaseID, a.OwnerID, a.ActivityType, a.Description,
		nullableStringPtr(a.FromStageID), nullableStringPtr(a.ToStageID), formatTime(a.CreatedAt))
	return err
}

// ListActivities returns a case's activities, oldest first.
func (r Repo) ListActivities(ctx context.Context, ownerID, caseID string) ([]domain.Activity, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,case_id,owner_id,activity_type,description,from_stage_id,to_stage_id,created_at
FROM activities WHERE owner_id=? AND case_id=? ORDER BY created_at ASC, rowid ASC`, ownerID, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var from, to sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.CaseID, &a.OwnerID, &a.ActivityType, &a.Description, &from, &to, &createdAt); err != nil {
			return nil, err
		}
		if from.Valid {
			a.FromStageID = &from.String
		}
		if to.Valid {
			a.ToStageID = &to.String
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
