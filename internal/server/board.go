package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"caseflow/internal/board"
	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

type boardQuery struct {
	Search     string `query:"search" doc:"case-insensitive match on client, opposing party or process number"`
	ClientID   string `query:"client_id"`
	ActionType string `query:"action_type"`
	Priority   string `query:"priority" doc:"low, medium, high or urgent"`
}

func (q boardQuery) filters() (board.Filters, huma.StatusError) {
	f := board.Filters{Search: q.Search, ClientID: q.ClientID, ActionType: q.ActionType}
	if q.Priority != "" {
		p := domain.Priority(q.Priority)
		if !p.Valid() {
			return board.Filters{}, newAPIError(http.StatusBadRequest, "bad_request", "priority must be one of low, medium, high, urgent", map[string]any{"field": "priority"})
		}
		f.Priority = p
	}
	return f, nil
}

func registerBoard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Kanban columns, one per stage",
		Tags:        []string{"board"},
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *boardQuery) (*struct {
		Body board.Board `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, ferr := input.filters()
		if ferr != nil {
			return nil, ferr
		}
		b, err := e.Board(ctx, owner, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body board.Board `json:"body"`
		}{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board-list",
		Method:      http.MethodGet,
		Path:        "/board/list",
		Summary:     "Flat sortable list",
		Tags:        []string{"board"},
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		boardQuery
		Sort string `query:"sort" doc:"client, opposing_party, process_number, action_type, stage, priority, due_date or entered_at"`
		Desc bool   `query:"desc"`
	}) (*struct {
		Body []board.Row `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, ferr := input.filters()
		if ferr != nil {
			return nil, ferr
		}
		key, err := board.ParseSortKey(input.Sort)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": "sort"})
		}
		rows, err := e.List(ctx, owner, f, board.Sort{Key: key, Desc: input.Desc})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []board.Row `json:"body"`
		}{Body: rows}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board-calendar",
		Method:      http.MethodGet,
		Path:        "/board/calendar",
		Summary:     "Cases bucketed by due date",
		Tags:        []string{"board"},
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		boardQuery
		Month string `query:"month" doc:"YYYY-MM; omit for all dates"`
	}) (*struct {
		Body []board.Day `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, ferr := input.filters()
		if ferr != nil {
			return nil, ferr
		}
		var month *board.Month
		if input.Month != "" {
			m, err := board.ParseMonth(input.Month)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": "month"})
			}
			month = &m
		}
		days, err := e.Calendar(ctx, owner, f, month)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []board.Day `json:"body"`
		}{Body: days}, nil
	})
}
