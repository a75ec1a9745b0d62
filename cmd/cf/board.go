package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseflow/internal/board"
	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

type filterFlags struct {
	search, clientID, actionType, priority string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "match client, opposing party or process number")
	cmd.Flags().StringVar(&f.clientID, "client", "", "client id")
	cmd.Flags().StringVar(&f.actionType, "action-type", "", "action type")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium, high or urgent")
}

func (f filterFlags) filters() (board.Filters, error) {
	out := board.Filters{Search: f.search, ClientID: f.clientID, ActionType: f.actionType}
	if f.priority != "" {
		p := domain.Priority(f.priority)
		if !p.Valid() {
			return board.Filters{}, fmt.Errorf("--priority must be one of low, medium, high, urgent")
		}
		out.Priority = p
	}
	return out, nil
}

func boardCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the kanban board",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filters()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				b, err := e.Board(ctx, owner, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(b)
				}
				tw := newTable(table.Row{"#", "Stage", "Cases", ""})
				for _, col := range b.Columns {
					lines := make([]string, 0, len(col.Cards))
					for _, c := range col.Cards {
						lines = append(lines, cardLine(c))
					}
					tw.AppendRow(table.Row{col.Stage.Position, stageLabel(col.Stage), col.Count, strings.Join(lines, "\n")})
				}
				tw.AppendFooter(table.Row{"", "Total", b.Total, ""})
				tw.Render()
				return nil
			})
		},
	}
	ff.bind(cmd)
	cmd.AddCommand(boardListCmd())
	cmd.AddCommand(boardCalendarCmd())
	return cmd
}

func cardLine(c board.Card) string {
	parts := []string{c.ClientName}
	if c.ProcessNumber != "" {
		parts = append(parts, c.ProcessNumber)
	}
	if c.Priority != "" {
		parts = append(parts, string(c.Priority))
	}
	if c.DueDate != nil {
		parts = append(parts, "due "+c.DueDate.Format(domain.DateLayout))
	}
	return strings.Join(parts, " · ")
}

func boardListCmd() *cobra.Command {
	var ff filterFlags
	var sortKey string
	var desc bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show cases as a sortable list",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filters()
			if err != nil {
				return err
			}
			key, err := board.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				rows, err := e.List(ctx, owner, f, board.Sort{Key: key, Desc: desc})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := newTable(table.Row{"Client", "Opposing party", "Process", "Action", "Stage", "Priority", "Due", "Entered"})
				for _, r := range rows {
					entered := ""
					if r.EnteredAt != nil {
						entered = humanize.Time(*r.EnteredAt)
					}
					tw.AppendRow(table.Row{r.ClientName, r.OpposingParty, r.ProcessNumber, r.ActionType, r.StageName, r.Priority, dueLabel(r.DueDate), entered})
				}
				tw.Render()
				return nil
			})
		},
	}
	ff.bind(cmd)
	cmd.Flags().StringVar(&sortKey, "sort", "client", "client, opposing_party, process_number, action_type, stage, priority, due_date or entered_at")
	cmd.Flags().BoolVar(&desc, "desc", false, "descending order")
	return cmd
}

func boardCalendarCmd() *cobra.Command {
	var ff filterFlags
	var monthFlag string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show cases by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filters()
			if err != nil {
				return err
			}
			var month *board.Month
			if monthFlag != "" {
				m, err := board.ParseMonth(monthFlag)
				if err != nil {
					return err
				}
				month = &m
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				days, err := e.Calendar(ctx, owner, f, month)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(days)
				}
				tw := newTable(table.Row{"Date", "Client", "Stage", "Priority"})
				for _, d := range days {
					for i, r := range d.Rows {
						date := ""
						if i == 0 {
							date = d.Date
						}
						tw.AppendRow(table.Row{date, r.ClientName, r.StageName, r.Priority})
					}
					tw.AppendSeparator()
				}
				tw.Render()
				return nil
			})
		},
	}
	ff.bind(cmd)
	cmd.Flags().StringVar(&monthFlag, "month", "", "restrict to one month, YYYY-MM")
	return cmd
}
