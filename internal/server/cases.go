package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

type casePath struct {
	CaseID string `path:"case_id"`
}

func registerCases(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-cases",
		Method:      http.MethodGet,
		Path:        "/cases",
		Summary:     "List cases with their assignments",
		Tags:        []string{"cases"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CaseResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListCases(ctx, owner)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CaseResponse `json:"body"`
		}{Body: mapCases(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-cases",
		Method:      http.MethodPut,
		Path:        "/cases",
		Summary:     "Upsert case registry records",
		Tags:        []string{"cases"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body ImportCasesRequest `json:"body"`
	}) (*struct {
		Body []domain.Case `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ImportCases(ctx, owner, casesFromRequest(input.Body.Cases))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Case `json:"body"`
		}{Body: emptyIfNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-case",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}",
		Summary:     "Get a case, its assignment and resolved stage",
		Tags:        []string{"cases"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body CaseDetailResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		pc, err := e.GetCase(ctx, owner, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		stage, err := e.CurrentStage(ctx, owner, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CaseDetailResponse `json:"body"`
		}{Body: CaseDetailResponse{CaseResponse: caseResponse(pc), CurrentStage: stage}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-assignment",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/assignment",
		Summary:     "Get a case's pipeline assignment",
		Tags:        []string{"assignments"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body AssignmentResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.GetAssignment(ctx, owner, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssignmentResponse `json:"body"`
		}{Body: assignmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-assignment",
		Method:      http.MethodPut,
		Path:        "/cases/{case_id}/assignment",
		Summary:     "Create or patch a case's pipeline assignment",
		Description: "Omitted fields are unchanged; null clears due_date or notes. A stage change is recorded as an activity.",
		Tags:        []string{"assignments"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		CaseID string            `path:"case_id"`
		Body   AssignmentRequest `json:"body"`
	}) (*struct {
		Body AssignmentWriteResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		patch := engine.AssignmentPatch{
			StageID:      input.Body.StageID,
			Notes:        input.Body.Notes,
			ClearDueDate: sentNull(ctx, "due_date"),
			ClearNotes:   sentNull(ctx, "notes"),
		}
		if input.Body.Priority != nil {
			p := domain.Priority(*input.Body.Priority)
			patch.Priority = &p
		}
		if input.Body.DueDate != nil {
			d, err := time.Parse(domain.DateLayout, *input.Body.DueDate)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "due_date must be YYYY-MM-DD", map[string]any{"field": "due_date"})
			}
			patch.DueDate = &d
		}
		res, err := e.UpsertAssignment(ctx, owner, input.CaseID, patch)
		if err != nil {
			return nil, handleError(err)
		}
		out := AssignmentWriteResponse{Assignment: assignmentResponse(res.Assignment)}
		if res.Transition != nil {
			t := transitionResponse(*res.Transition)
			out.Transition = &t
		}
		return &struct {
			Body AssignmentWriteResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-case",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/move",
		Summary:     "Move a case to a stage",
		Tags:        []string{"assignments"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		CaseID string          `path:"case_id"`
		Body   MoveCaseRequest `json:"body"`
	}) (*struct {
		Body TransitionResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.MoveCase(ctx, owner, input.CaseID, input.Body.StageID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TransitionResponse `json:"body"`
		}{Body: transitionResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/activities",
		Summary:     "List a case's activity trail",
		Tags:        []string{"activities"},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body []domain.Activity `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListActivities(ctx, owner, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Activity `json:"body"`
		}{Body: items}, nil
	})
}
