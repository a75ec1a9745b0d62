package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"caseflow/internal/board"
	"caseflow/internal/domain"
)

// Pipeline is an owner's stages and cases joined with their assignments.
type Pipeline struct {
	Stages []domain.Stage
	Cases  []domain.PipelineCase
}

// LoadPipeline reads stages, cases and assignments concurrently and joins them.
func (e Engine) LoadPipeline(ctx context.Context, ownerID string) (Pipeline, error) {
	if err := requireOwner(ownerID); err != nil {
		return Pipeline{}, err
	}
	var (
		stages      []domain.Stage
		cases       []domain.Case
		assignments []domain.Assignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = e.Repo.ListStages(gctx, nil, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		cases, err = e.Repo.ListCases(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = e.Repo.ListAssignments(gctx, nil, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Pipeline{}, classify("load pipeline", err)
	}

	byCase := make(map[string]domain.Assignment, len(assignments))
	for _, a := range assignments {
		byCase[a.CaseID] = a
	}
	p := Pipeline{Stages: stages, Cases: make([]domain.PipelineCase, 0, len(cases))}
	if p.Stages == nil {
		p.Stages = []domain.Stage{}
	}
	for _, c := range cases {
		pc := domain.PipelineCase{Case: c}
		if a, ok := byCase[c.ID]; ok {
			pc.Assignment = &a
		}
		p.Cases = append(p.Cases, pc)
	}
	return p, nil
}

func (e Engine) Board(ctx context.Context, ownerID string, f board.Filters) (board.Board, error) {
	p, err := e.LoadPipeline(ctx, ownerID)
	if err != nil {
		return board.Board{}, err
	}
	return board.ProjectBoard(p.Stages, p.Cases, f), nil
}

func (e Engine) List(ctx context.Context, ownerID string, f board.Filters, s board.Sort) ([]board.Row, error) {
	p, err := e.LoadPipeline(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return board.ProjectList(p.Stages, p.Cases, f, s), nil
}

func (e Engine) Calendar(ctx context.Context, ownerID string, f board.Filters, month *board.Month) ([]board.Day, error) {
	p, err := e.LoadPipeline(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return board.ProjectCalendar(p.Stages, p.Cases, f, month), nil
}
