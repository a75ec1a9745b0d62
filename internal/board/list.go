package board

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"caseflow/internal/domain"
)

type SortKey string

const (
	SortClient        SortKey = "client"
	SortOpposingParty SortKey = "opposing_party"
	SortProcessNumber SortKey = "process_number"
	SortActionType    SortKey = "action_type"
	SortStage         SortKey = "stage"
	SortPriority      SortKey = "priority"
	SortDueDate       SortKey = "due_date"
	SortEnteredAt     SortKey = "entered_at"
)

var sortKeys = []SortKey{SortClient, SortOpposingParty, SortProcessNumber, SortActionType, SortStage, SortPriority, SortDueDate, SortEnteredAt}

// ParseSortKey accepts one of the list columns; empty means client.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortClient, nil
	}
	for _, k := range sortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, len(sortKeys))
	for i, k := range sortKeys {
		names[i] = string(k)
	}
	return "", fmt.Errorf("unknown sort column %q (want one of %s)", s, strings.Join(names, ", "))
}

type Sort struct {
	Key  SortKey `json:"key"`
	Desc bool    `json:"desc"`
}

// Row is a card flattened with its stage label.
type Row struct {
	Card
	StageName     string `json:"stage_name"`
	StagePosition int    `json:"stage_position"`
}

func rowsFor(p placement, cases []domain.PipelineCase) []Row {
	rows := make([]Row, 0, len(cases))
	for _, pc := range cases {
		stage := p.stages[p.column(pc)]
		rows = append(rows, Row{Card: cardFor(pc, stage), StageName: stage.Name, StagePosition: stage.Position})
	}
	return rows
}

// ProjectList returns the filtered cases as flat rows ordered by s. Rows with
// no value for the sort column (no due date, no assignment) always sort last;
// ties fall back to case id.
func ProjectList(stages []domain.Stage, cases []domain.PipelineCase, f Filters, s Sort) []Row {
	p := newPlacement(stages)
	if len(p.stages) == 0 {
		return []Row{}
	}
	rows := rowsFor(p, Apply(cases, f))
	m := newMatcher(Filters{})
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareRows(m, rows[i], rows[j], s.Key)
		if c == 0 {
			return rows[i].CaseID < rows[j].CaseID
		}
		if c == missingLast || c == -missingLast {
			return c < 0
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return rows
}

// missingLast is returned by compareRows when exactly one side lacks a value;
// it is not flipped by descending order.
const missingLast = 2

func compareRows(m *matcher, a, b Row, key SortKey) int {
	switch key {
	case SortOpposingParty:
		return compareText(m, a.OpposingParty, b.OpposingParty)
	case SortProcessNumber:
		return compareText(m, a.ProcessNumber, b.ProcessNumber)
	case SortActionType:
		return compareText(m, a.ActionType, b.ActionType)
	case SortStage:
		return compareInt(a.StagePosition, b.StagePosition)
	case SortPriority:
		return compareRank(a.Priority.Rank(), b.Priority.Rank())
	case SortDueDate:
		return compareTime(a.DueDate, b.DueDate)
	case SortEnteredAt:
		return compareTime(a.EnteredAt, b.EnteredAt)
	default:
		return compareText(m, a.ClientName, b.ClientName)
	}
}

func compareText(m *matcher, a, b string) int {
	return strings.Compare(m.fold(a), m.fold(b))
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareRank(a, b int) int {
	switch {
	case a == 0 && b == 0:
		return 0
	case a == 0:
		return missingLast
	case b == 0:
		return -missingLast
	}
	return compareInt(a, b)
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return missingLast
	case b == nil:
		return -missingLast
	}
	return a.Compare(*b)
}
