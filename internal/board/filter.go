package board

import (
	"strings"

	"golang.org/x/text/cases"

	"caseflow/internal/domain"
)

// Filters narrow the case set before it is bucketed. Empty fields are inactive;
// active fields must all match.
type Filters struct {
	Search     string          `json:"search,omitempty"`
	ClientID   string          `json:"client_id,omitempty"`
	ActionType string          `json:"action_type,omitempty"`
	Priority   domain.Priority `json:"priority,omitempty"`
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return strings.TrimSpace(f.Search) != "" || f.ClientID != "" || f.ActionType != "" || f.Priority != ""
}

// matcher holds a case folder; cases.Caser is stateful so each projection gets its own.
type matcher struct {
	f      Filters
	folder cases.Caser
	needle string
}

func newMatcher(f Filters) *matcher {
	m := &matcher{f: f, folder: cases.Fold()}
	if s := strings.TrimSpace(f.Search); s != "" {
		m.needle = m.fold(s)
	}
	return m
}

func (m *matcher) fold(s string) string {
	return m.folder.String(s)
}

func (m *matcher) match(pc domain.PipelineCase) bool {
	if m.f.ClientID != "" && pc.Case.ClientID != m.f.ClientID {
		return false
	}
	if m.f.ActionType != "" && pc.Case.ActionType != m.f.ActionType {
		return false
	}
	if m.f.Priority != "" {
		if pc.Assignment == nil || pc.Assignment.Priority != m.f.Priority {
			return false
		}
	}
	if m.needle != "" {
		hit := false
		for _, field := range []string{pc.Case.ClientName, pc.Case.OpposingParty, pc.Case.ProcessNumber} {
			if field != "" && strings.Contains(m.fold(field), m.needle) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Apply returns the cases that pass every active filter, in input order.
func Apply(in []domain.PipelineCase, f Filters) []domain.PipelineCase {
	m := newMatcher(f)
	out := make([]domain.PipelineCase, 0, len(in))
	for _, pc := range in {
		if m.match(pc) {
			out = append(out, pc)
		}
	}
	return out
}
