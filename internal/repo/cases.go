package repo

import (
	"context"
	"database/sql"

	"caseflow/internal/domain"
)

const caseColumns = `id,owner_id,client_id,client_name,COALESCE(opposing_party,''),COALESCE(process_number,''),COALESCE(action_type,''),created_at`

func scanCase(row rowScanner) (domain.Case, error) {
	var c domain.Case
	var createdAt string
	if err := row.Scan(&c.ID, &c.OwnerID, &c.ClientID, &c.ClientName, &c.OpposingParty, &c.ProcessNumber, &c.ActionType, &createdAt); err != nil {
		return c, notFoundIfNoRows(err)
	}
	var err error
	c.CreatedAt, err = parseTime(createdAt)
	return c, err
}

func (r Repo) GetCase(ctx context.Context, tx *sql.Tx, ownerID, id string) (domain.Case, error) {
	return scanCase(r.q(tx).QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE owner_id=? AND id=?`, ownerID, id))
}

func (r Repo) ListCases(ctx context.Context, ownerID string) ([]domain.Case, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE owner_id=? ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// UpsertCase stores a registry record. The owner of an existing id never changes.
func (r Repo) UpsertCase(ctx context.Context, tx *sql.Tx, c domain.Case) error {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO cases(id,owner_id,client_id,client_name,opposing_party,process_number,action_type,created_at)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET client_id=excluded.client_id, client_name=excluded.client_name,
opposing_party=excluded.opposing_party, process_number=excluded.process_number, action_type=excluded.action_type
WHERE cases.owner_id=excluded.owner_id`,
		c.ID, c.OwnerID, c.ClientID, c.ClientName, nullable(c.OpposingParty), nullable(c.ProcessNumber), nullable(c.ActionType), formatTime(c.CreatedAt))
	if err != nil {
		return err
	}
	return requireAffected(res)
}
