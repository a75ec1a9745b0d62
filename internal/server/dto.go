package server

import (
	"time"

	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

// Request payloads

type CreateStageRequest struct {
	Name        string `json:"name" minLength:"1"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Position    int    `json:"position,omitempty" minimum:"0" doc:"1-based insert position; 0 or omitted appends"`
	IsFinal     bool   `json:"is_final,omitempty"`
}

type UpdateStageRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsFinal     *bool   `json:"is_final,omitempty"`
}

type ReorderStagesRequest struct {
	StageIDs []string `json:"stage_ids"`
}

type CaseRequest struct {
	ID            string `json:"id"`
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	OpposingParty string `json:"opposing_party,omitempty"`
	ProcessNumber string `json:"process_number,omitempty"`
	ActionType    string `json:"action_type,omitempty"`
}

type ImportCasesRequest struct {
	Cases []CaseRequest `json:"cases"`
}

// AssignmentRequest patches an assignment. Omitted fields are unchanged;
// an explicit null clears due_date or notes.
type AssignmentRequest struct {
	StageID  *string `json:"stage_id,omitempty"`
	Priority *string `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	DueDate  *string `json:"due_date,omitempty" nullable:"true" format:"date"`
	Notes    *string `json:"notes,omitempty" nullable:"true"`
}

type MoveCaseRequest struct {
	StageID string `json:"stage_id" minLength:"1"`
}

type CreateTaskRequest struct {
	Title string `json:"title" minLength:"1"`
}

type UpdateTaskRequest struct {
	IsCompleted bool `json:"is_completed"`
}

// Responses

type SeedStagesResponse struct {
	Created bool           `json:"created"`
	Stages  []domain.Stage `json:"stages"`
}

type AssignmentResponse struct {
	CaseID    string    `json:"case_id"`
	StageID   string    `json:"stage_id"`
	Priority  string    `json:"priority"`
	DueDate   *string   `json:"due_date,omitempty" format:"date"`
	Notes     *string   `json:"notes,omitempty"`
	EnteredAt time.Time `json:"entered_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CaseResponse struct {
	domain.Case
	Assignment *AssignmentResponse `json:"assignment,omitempty"`
}

type CaseDetailResponse struct {
	CaseResponse
	CurrentStage domain.Stage `json:"current_stage"`
}

type TransitionResponse struct {
	From       domain.Stage       `json:"from"`
	To         domain.Stage       `json:"to"`
	Assignment AssignmentResponse `json:"assignment"`
	Activity   domain.Activity    `json:"activity"`
}

type AssignmentWriteResponse struct {
	Assignment AssignmentResponse  `json:"assignment"`
	Transition *TransitionResponse `json:"transition,omitempty"`
}

func assignmentResponse(a domain.Assignment) AssignmentResponse {
	resp := AssignmentResponse{
		CaseID:    a.CaseID,
		StageID:   a.StageID,
		Priority:  string(a.Priority),
		Notes:     a.Notes,
		EnteredAt: a.EnteredAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.DueDate != nil {
		d := a.DueDate.Format(domain.DateLayout)
		resp.DueDate = &d
	}
	return resp
}

func caseResponse(pc domain.PipelineCase) CaseResponse {
	resp := CaseResponse{Case: pc.Case}
	if pc.Assignment != nil {
		a := assignmentResponse(*pc.Assignment)
		resp.Assignment = &a
	}
	return resp
}

func mapCases(items []domain.PipelineCase) []CaseResponse {
	out := make([]CaseResponse, 0, len(items))
	for _, pc := range items {
		out = append(out, caseResponse(pc))
	}
	return out
}

func transitionResponse(t engine.Transition) TransitionResponse {
	return TransitionResponse{
		From:       t.From,
		To:         t.To,
		Assignment: assignmentResponse(t.Assignment),
		Activity:   t.Activity,
	}
}

func casesFromRequest(in []CaseRequest) []domain.Case {
	out := make([]domain.Case, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Case{
			ID:            c.ID,
			ClientID:      c.ClientID,
			ClientName:    c.ClientName,
			OpposingParty: c.OpposingParty,
			ProcessNumber: c.ProcessNumber,
			ActionType:    c.ActionType,
		})
	}
	return out
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
