package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"caseflow/internal/domain"
)

func (e Engine) GetCase(ctx context.Context, ownerID, caseID string) (domain.PipelineCase, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.PipelineCase{}, err
	}
	c, err := e.Repo.GetCase(ctx, nil, ownerID, caseID)
	if err != nil {
		return domain.PipelineCase{}, classify("get case", notFound(err, "case", caseID))
	}
	a, err := e.loadAssignment(ctx, nil, ownerID, caseID)
	if err != nil {
		return domain.PipelineCase{}, classify("get case", err)
	}
	return domain.PipelineCase{Case: c, Assignment: a}, nil
}

func (e Engine) ListCases(ctx context.Context, ownerID string) ([]domain.PipelineCase, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	p, err := e.LoadPipeline(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return p.Cases, nil
}

func validateCase(c domain.Case) error {
	if strings.TrimSpace(c.ID) == "" {
		return ValidationError{Field: "id", Reason: "required"}
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return ValidationError{Field: "client_id", Reason: "required"}
	}
	if strings.TrimSpace(c.ClientName) == "" {
		return ValidationError{Field: "client_name", Reason: "required"}
	}
	return nil
}

// ImportCases upserts registry records for the owner in one transaction.
// An id owned by someone else is reported as not found and nothing is written.
func (e Engine) ImportCases(ctx context.Context, ownerID string, in []domain.Case) ([]domain.Case, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	for i, c := range in {
		if err := validateCase(c); err != nil {
			if ve, ok := err.(ValidationError); ok {
				ve.Field = fmt.Sprintf("cases[%d].%s", i, ve.Field)
				return nil, ve
			}
			return nil, err
		}
	}
	now := e.now()
	out := make([]domain.Case, 0, len(in))
	err := e.withTx(ctx, "import cases", func(tx *sql.Tx) error {
		out = out[:0]
		for _, c := range in {
			c.OwnerID = ownerID
			c.ID = strings.TrimSpace(c.ID)
			if existing, err := e.Repo.GetCase(ctx, tx, ownerID, c.ID); err == nil {
				c.CreatedAt = existing.CreatedAt
			} else if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			if err := e.Repo.UpsertCase(ctx, tx, c); err != nil {
				return notFound(err, "case", c.ID)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger().Info("cases imported", zap.String("owner_id", ownerID), zap.Int("count", len(out)))
	return out, nil
}

// UpsertCase stores one registry record.
func (e Engine) UpsertCase(ctx context.Context, ownerID string, c domain.Case) (domain.Case, error) {
	out, err := e.ImportCases(ctx, ownerID, []domain.Case{c})
	if err != nil {
		if ve, ok := err.(ValidationError); ok {
			ve.Field = strings.TrimPrefix(ve.Field, "cases[0].")
			return domain.Case{}, ve
		}
		return domain.Case{}, err
	}
	return out[0], nil
}

// ListActivities returns a case's audit trail, oldest first.
func (e Engine) ListActivities(ctx context.Context, ownerID, caseID string) ([]domain.Activity, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := requireID("case_id", caseID); err != nil {
		return nil, err
	}
	if _, err := e.Repo.GetCase(ctx, nil, ownerID, caseID); err != nil {
		return nil, classify("get case", notFound(err, "case", caseID))
	}
	acts, err := e.Repo.ListActivities(ctx, ownerID, caseID)
	if err != nil {
		return nil, classify("list activities", err)
	}
	if acts == nil {
		acts = []domain.Activity{}
	}
	return acts, nil
}
