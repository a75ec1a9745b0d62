// Package board derives read-only views of the pipeline: kanban columns, a
// sortable flat list and a due-date calendar. Nothing here touches storage.
package board

import (
	"sort"
	"time"

	"caseflow/internal/domain"
)

// Card is one case as displayed in any view.
type Card struct {
	CaseID        string          `json:"case_id"`
	ClientID      string          `json:"client_id"`
	ClientName    string          `json:"client_name"`
	OpposingParty string          `json:"opposing_party,omitempty"`
	ProcessNumber string          `json:"process_number,omitempty"`
	ActionType    string          `json:"action_type,omitempty"`
	StageID       string          `json:"stage_id"`
	Assigned      bool            `json:"assigned"`
	Priority      domain.Priority `json:"priority,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	EnteredAt     *time.Time      `json:"entered_at,omitempty"`
}

type Column struct {
	Stage domain.Stage `json:"stage"`
	Count int          `json:"count"`
	Cards []Card       `json:"cards"`
}

type Board struct {
	Columns []Column `json:"columns"`
	Total   int      `json:"total"`
}

// orderStages returns a position-sorted copy.
func orderStages(stages []domain.Stage) []domain.Stage {
	out := append([]domain.Stage(nil), stages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// placement resolves which stage a case is displayed in: its assignment's
// stage when that stage exists, otherwise the first stage.
type placement struct {
	stages []domain.Stage
	index  map[string]int
}

func newPlacement(stages []domain.Stage) placement {
	ordered := orderStages(stages)
	idx := make(map[string]int, len(ordered))
	for i, s := range ordered {
		idx[s.ID] = i
	}
	return placement{stages: ordered, index: idx}
}

func (p placement) column(pc domain.PipelineCase) int {
	if pc.Assignment != nil {
		if i, ok := p.index[pc.Assignment.StageID]; ok {
			return i
		}
	}
	return 0
}

func cardFor(pc domain.PipelineCase, stage domain.Stage) Card {
	c := Card{
		CaseID:        pc.Case.ID,
		ClientID:      pc.Case.ClientID,
		ClientName:    pc.Case.ClientName,
		OpposingParty: pc.Case.OpposingParty,
		ProcessNumber: pc.Case.ProcessNumber,
		ActionType:    pc.Case.ActionType,
		StageID:       stage.ID,
	}
	if a := pc.Assignment; a != nil {
		c.Assigned = true
		c.Priority = a.Priority
		c.DueDate = a.DueDate
		entered := a.EnteredAt
		c.EnteredAt = &entered
	}
	return c
}

// ProjectBoard buckets the filtered cases into one column per stage, in
// position order. Cases keep their input order inside a column.
func ProjectBoard(stages []domain.Stage, cases []domain.PipelineCase, f Filters) Board {
	p := newPlacement(stages)
	b := Board{Columns: make([]Column, len(p.stages))}
	for i, s := range p.stages {
		b.Columns[i] = Column{Stage: s, Cards: []Card{}}
	}
	if len(p.stages) == 0 {
		return b
	}
	for _, pc := range Apply(cases, f) {
		col := p.column(pc)
		b.Columns[col].Cards = append(b.Columns[col].Cards, cardFor(pc, p.stages[col]))
	}
	for i := range b.Columns {
		b.Columns[i].Count = len(b.Columns[i].Cards)
		b.Total += b.Columns[i].Count
	}
	return b
}

// Find returns the column index and card for caseID.
func (b Board) Find(caseID string) (int, Card, bool) {
	for i, col := range b.Columns {
		for _, c := range col.Cards {
			if c.CaseID == caseID {
				return i, c, true
			}
		}
	}
	return -1, Card{}, false
}

// WithMove returns a copy of the board with caseID appended to the column of
// toStageID. The receiver is left untouched so callers can keep it as the
// pre-move snapshot. ok is false when the case or stage is not on the board.
func (b Board) WithMove(caseID, toStageID string) (Board, bool) {
	from, card, found := b.Find(caseID)
	if !found {
		return b, false
	}
	to := -1
	for i, col := range b.Columns {
		if col.Stage.ID == toStageID {
			to = i
			break
		}
	}
	if to < 0 {
		return b, false
	}
	out := Board{Columns: make([]Column, len(b.Columns)), Total: b.Total}
	for i, col := range b.Columns {
		cards := make([]Card, 0, len(col.Cards)+1)
		for _, c := range col.Cards {
			if i == from && c.CaseID == caseID {
				continue
			}
			cards = append(cards, c)
		}
		if i == to {
			card.StageID = toStageID
			card.Assigned = true
			cards = append(cards, card)
		}
		out.Columns[i] = Column{Stage: col.Stage, Cards: cards, Count: len(cards)}
	}
	return out, true
}
