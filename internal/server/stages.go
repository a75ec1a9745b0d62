package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

type stagePath struct {
	StageID string `path:"stage_id"`
}

func registerStages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-stages",
		Method:      http.MethodGet,
		Path:        "/stages",
		Summary:     "List stages in position order",
		Tags:        []string{"stages"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Stage `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListStages(ctx, owner)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Stage `json:"body"`
		}{Body: emptyIfNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "seed-default-stages",
		Method:      http.MethodPost,
		Path:        "/stages/defaults",
		Summary:     "Create the default stages when the owner has none",
		Tags:        []string{"stages"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SeedStagesResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, created, err := e.CreateDefaultStagesIfEmpty(ctx, owner)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SeedStagesResponse `json:"body"`
		}{Body: SeedStagesResponse{Created: created, Stages: emptyIfNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-stage",
		Method:        http.MethodPost,
		Path:          "/stages",
		Summary:       "Create a stage",
		Tags:          []string{"stages"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body CreateStageRequest `json:"body"`
	}) (*struct {
		Body domain.Stage `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.UpsertStage(ctx, owner, engine.StageUpsert{Draft: &domain.StageDraft{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Color:       input.Body.Color,
			Position:    input.Body.Position,
			IsFinal:     input.Body.IsFinal,
		}})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Stage `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-stages",
		Method:      http.MethodPut,
		Path:        "/stages/reorder",
		Summary:     "Set stage order",
		Description: "stage_ids must list every stage of the owner exactly once.",
		Tags:        []string{"stages"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body ReorderStagesRequest `json:"body"`
	}) (*struct {
		Body []domain.Stage `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ReorderStages(ctx, owner, input.Body.StageIDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Stage `json:"body"`
		}{Body: emptyIfNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stage",
		Method:      http.MethodPatch,
		Path:        "/stages/{stage_id}",
		Summary:     "Edit a stage",
		Tags:        []string{"stages"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		StageID string             `path:"stage_id"`
		Body    UpdateStageRequest `json:"body"`
	}) (*struct {
		Body domain.Stage `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.UpsertStage(ctx, owner, engine.StageUpsert{Edit: &domain.StageEdit{
			ID:          input.StageID,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Color:       input.Body.Color,
			IsFinal:     input.Body.IsFinal,
		}})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Stage `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-stage",
		Method:      http.MethodDelete,
		Path:        "/stages/{stage_id}",
		Summary:     "Delete a custom stage",
		Description: "Default stages are protected. Cases in the deleted stage move to the first remaining stage.",
		Tags:        []string{"stages"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *stagePath) (*struct {
		Body engine.StageDeletion `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.DeleteStage(ctx, owner, input.StageID)
		if err != nil {
			return nil, handleError(err)
		}
		res.Activities = emptyIfNil(res.Activities)
		return &struct {
			Body engine.StageDeletion `json:"body"`
		}{Body: res}, nil
	})
}
