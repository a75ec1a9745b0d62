package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/domain"
)

func fixtureStages() []domain.Stage {
	// Deliberately out of order; projections sort by position.
	return []domain.Stage{
		{ID: "s3", Name: "Sentença", Position: 3},
		{ID: "s1", Name: "Consulta Inicial", Position: 1},
		{ID: "s2", Name: "Protocolado", Position: 2},
	}
}

func day(s string) *time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func assigned(stageID string, p domain.Priority, due *time.Time) *domain.Assignment {
	return &domain.Assignment{StageID: stageID, Priority: p, DueDate: due, EnteredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func fixtureCases() []domain.PipelineCase {
	return []domain.PipelineCase{
		{Case: domain.Case{ID: "c1", ClientID: "cli-1", ClientName: "Maria Souza", ProcessNumber: "0001-2024", ActionType: "trabalhista"},
			Assignment: assigned("s2", domain.PriorityHigh, day("2024-05-02"))},
		{Case: domain.Case{ID: "c2", ClientID: "cli-1", ClientName: "Maria Souza", OpposingParty: "Banco Ômega", ActionType: "civel"},
			Assignment: assigned("s3", domain.PriorityLow, day("2024-05-02"))},
		{Case: domain.Case{ID: "c3", ClientID: "cli-3", ClientName: "joão lima", ActionType: "trabalhista"}},
		{Case: domain.Case{ID: "c4", ClientID: "cli-4", ClientName: "Ana Prado"},
			Assignment: assigned("gone", domain.PriorityUrgent, day("2024-06-10"))},
	}
}

func TestProjectBoardColumnsFollowPositions(t *testing.T) {
	b := ProjectBoard(fixtureStages(), fixtureCases(), Filters{})
	require.Len(t, b.Columns, 3)
	assert.Equal(t, "s1", b.Columns[0].Stage.ID)
	assert.Equal(t, "s2", b.Columns[1].Stage.ID)
	assert.Equal(t, "s3", b.Columns[2].Stage.ID)
	assert.Equal(t, 4, b.Total)

	// c3 has no assignment and c4 points at a missing stage; both fall back to the first column.
	first := b.Columns[0]
	require.Equal(t, 2, first.Count)
	assert.Equal(t, "c3", first.Cards[0].CaseID)
	assert.False(t, first.Cards[0].Assigned)
	assert.Equal(t, "c4", first.Cards[1].CaseID)
	assert.Equal(t, "s1", first.Cards[1].StageID)
	assert.Equal(t, 1, b.Columns[1].Count)
	assert.Equal(t, 1, b.Columns[2].Count)
}

func TestProjectBoardWithoutStages(t *testing.T) {
	b := ProjectBoard(nil, fixtureCases(), Filters{})
	assert.Empty(t, b.Columns)
	assert.Zero(t, b.Total)
}

func TestFiltersAreConjunctive(t *testing.T) {
	cases := fixtureCases()
	ids := func(in []domain.PipelineCase) []string {
		out := []string{}
		for _, pc := range in {
			out = append(out, pc.Case.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c1", "c2"}, ids(Apply(cases, Filters{ClientID: "cli-1"})))
	assert.Equal(t, []string{"c1"}, ids(Apply(cases, Filters{ClientID: "cli-1", ActionType: "trabalhista"})))
	assert.Empty(t, ids(Apply(cases, Filters{ClientID: "cli-3", Priority: domain.PriorityHigh})))
	// Unassigned cases carry no priority and never match a priority filter.
	assert.Equal(t, []string{"c4"}, ids(Apply(cases, Filters{Priority: domain.PriorityUrgent})))
	assert.Len(t, Apply(cases, Filters{}), 4)
	assert.False(t, Filters{Search: "   "}.Active())
	assert.True(t, Filters{Priority: domain.PriorityLow}.Active())
}

func TestSearchIsCaseFolded(t *testing.T) {
	cases := fixtureCases()
	for needle, want := range map[string][]string{
		"MARIA":       {"c1", "c2"},
		"JOÃO":        {"c3"},
		"banco ômega": {"c2"},
		"0001-2024":   {"c1"},
		"nobody":      {},
	} {
		got := []string{}
		for _, pc := range Apply(cases, Filters{Search: needle}) {
			got = append(got, pc.Case.ID)
		}
		assert.Equal(t, want, got, needle)
	}
}

func TestProjectListSortsMissingValuesLast(t *testing.T) {
	stages, cases := fixtureStages(), fixtureCases()
	order := func(rows []Row) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.CaseID
		}
		return out
	}

	asc := ProjectList(stages, cases, Filters{}, Sort{Key: SortPriority})
	assert.Equal(t, []string{"c2", "c1", "c4", "c3"}, order(asc))
	desc := ProjectList(stages, cases, Filters{}, Sort{Key: SortPriority, Desc: true})
	assert.Equal(t, []string{"c4", "c1", "c2", "c3"}, order(desc))

	due := ProjectList(stages, cases, Filters{}, Sort{Key: SortDueDate, Desc: true})
	assert.Equal(t, []string{"c4", "c1", "c2", "c3"}, order(due))

	byClient := ProjectList(stages, cases, Filters{}, Sort{Key: SortClient})
	assert.Equal(t, []string{"c4", "c3", "c1", "c2"}, order(byClient))

	byStage := ProjectList(stages, cases, Filters{}, Sort{Key: SortStage})
	assert.Equal(t, []string{"c3", "c4", "c1", "c2"}, order(byStage))
	assert.Equal(t, "Consulta Inicial", byStage[1].StageName)
	assert.Equal(t, 1, byStage[1].StagePosition)
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortClient, k)
	k, err = ParseSortKey("due_date")
	require.NoError(t, err)
	assert.Equal(t, SortDueDate, k)
	_, err = ParseSortKey("color")
	assert.Error(t, err)
}

func TestProjectCalendar(t *testing.T) {
	days := ProjectCalendar(fixtureStages(), fixtureCases(), Filters{}, nil)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-05-02", days[0].Date)
	require.Len(t, days[0].Rows, 2)
	assert.Equal(t, "c1", days[0].Rows[0].CaseID, "more urgent first")
	assert.Equal(t, "c2", days[0].Rows[1].CaseID)
	assert.Equal(t, "2024-06-10", days[1].Date)

	june, err := ParseMonth("2024-06")
	require.NoError(t, err)
	assert.Equal(t, "2024-06", june.String())
	days = ProjectCalendar(fixtureStages(), fixtureCases(), Filters{}, &june)
	require.Len(t, days, 1)
	assert.Equal(t, "c4", days[0].Rows[0].CaseID)

	_, err = ParseMonth("June")
	assert.Error(t, err)
}

func TestWithMoveLeavesSnapshotUntouched(t *testing.T) {
	before := ProjectBoard(fixtureStages(), fixtureCases(), Filters{})
	after, ok := before.WithMove("c3", "s3")
	require.True(t, ok)

	col, card, found := after.Find("c3")
	require.True(t, found)
	assert.Equal(t, 2, col)
	assert.Equal(t, "s3", card.StageID)
	assert.True(t, card.Assigned)
	assert.Equal(t, 1, after.Columns[0].Count)
	assert.Equal(t, 2, after.Columns[2].Count)
	assert.Equal(t, before.Total, after.Total)

	col, _, _ = before.Find("c3")
	assert.Equal(t, 0, col)
	assert.Equal(t, 2, before.Columns[0].Count)

	_, ok = before.WithMove("c3", "missing")
	assert.False(t, ok)
	_, ok = before.WithMove("missing", "s1")
	assert.False(t, ok)
}
