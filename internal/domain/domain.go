package domain

import "time"

// Priority is the urgency attached to a case's pipeline assignment.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists the accepted priorities from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities; unknown values rank 0.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i + 1
		}
	}
	return 0
}

const (
	ActivityStageChange     = "stage_change"
	ActivityStageReassigned = "stage_reassigned"
)

// DateLayout is the wire and storage format of due dates.
const DateLayout = "2006-01-02"

type Stage struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Position    int       `json:"position"`
	IsDefault   bool      `json:"is_default"`
	IsFinal     bool      `json:"is_final"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StageDraft is a stage that has not been persisted yet. It carries no id;
// Position 0 means "append at the end".
type StageDraft struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Position    int    `json:"position,omitempty"`
	IsFinal     bool   `json:"is_final,omitempty"`
}

// StageEdit patches a persisted stage. Nil fields are left untouched.
type StageEdit struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsFinal     *bool   `json:"is_final,omitempty"`
}

type Assignment struct {
	CaseID    string     `json:"case_id"`
	OwnerID   string     `json:"owner_id"`
	StageID   string     `json:"stage_id"`
	Priority  Priority   `json:"priority"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	EnteredAt time.Time  `json:"entered_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Activity struct {
	ID           string    `json:"id"`
	CaseID       string    `json:"case_id"`
	OwnerID      string    `json:"owner_id"`
	ActivityType string    `json:"activity_type"`
	Description  string    `json:"description"`
	FromStageID  *string   `json:"from_stage_id,omitempty"`
	ToStageID    *string   `json:"to_stage_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Task struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"case_id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Case is the read-only registry record the pipeline decorates.
type Case struct {
	ID            string    `json:"id" yaml:"id"`
	OwnerID       string    `json:"owner_id" yaml:"-"`
	ClientID      string    `json:"client_id" yaml:"client_id"`
	ClientName    string    `json:"client_name" yaml:"client_name"`
	OpposingParty string    `json:"opposing_party,omitempty" yaml:"opposing_party"`
	ProcessNumber string    `json:"process_number,omitempty" yaml:"process_number"`
	ActionType    string    `json:"action_type,omitempty" yaml:"action_type"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
}

// PipelineCase joins a case with its assignment, if any.
type PipelineCase struct {
	Case       Case        `json:"case"`
	Assignment *Assignment `json:"assignment,omitempty"`
}

type APIKey struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name,omitempty"`
	KeyHash   string    `json:"key_hash"`
	CreatedAt time.Time `json:"created_at"`
}
