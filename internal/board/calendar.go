package board

import (
	"fmt"
	"sort"
	"time"

	"caseflow/internal/domain"
)

// Month restricts a calendar to one month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth reads "2006-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("month %q: want YYYY-MM", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

type Day struct {
	Date string `json:"date"`
	Rows []Row  `json:"rows"`
}

// ProjectCalendar buckets filtered cases by due-date day, ascending. Cases
// without a due date are left out. Inside a day, more urgent cases come first.
func ProjectCalendar(stages []domain.Stage, cases []domain.PipelineCase, f Filters, month *Month) []Day {
	p := newPlacement(stages)
	if len(p.stages) == 0 {
		return []Day{}
	}
	byDay := map[string][]Row{}
	for _, row := range rowsFor(p, Apply(cases, f)) {
		if row.DueDate == nil {
			continue
		}
		if month != nil && !month.contains(*row.DueDate) {
			continue
		}
		key := row.DueDate.Format(domain.DateLayout)
		byDay[key] = append(byDay[key], row)
	}
	days := make([]Day, 0, len(byDay))
	m := newMatcher(Filters{})
	for key, rows := range byDay {
		sort.SliceStable(rows, func(i, j int) bool {
			if c := compareInt(rows[i].Priority.Rank(), rows[j].Priority.Rank()); c != 0 {
				return c > 0
			}
			if c := compareText(m, rows[i].ClientName, rows[j].ClientName); c != 0 {
				return c < 0
			}
			return rows[i].CaseID < rows[j].CaseID
		})
		days = append(days, Day{Date: key, Rows: rows})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
