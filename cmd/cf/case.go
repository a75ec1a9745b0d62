package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

func caseCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "case",
		Short: "Work with cases in the pipeline",
	}
	c.AddCommand(caseImportCmd())
	c.AddCommand(caseListCmd())
	c.AddCommand(caseShowCmd())
	c.AddCommand(caseMoveCmd())
	c.AddCommand(caseMetaCmd())
	return c
}

// caseFile is the YAML accepted by case import: either a bare list or {cases: [...]}.
type caseFile struct {
	Cases []domain.Case `yaml:"cases"`
}

func readCaseFile(path string) ([]domain.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []domain.Case
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped caseFile
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wrapped.Cases, nil
}

func caseImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert case registry records from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := readCaseFile(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				out, err := e.ImportCases(ctx, owner, cases)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("imported %d case(s)\n", len(out))
				return nil
			})
		},
	}
}

func enteredAgo(a *domain.Assignment) string {
	if a == nil {
		return ""
	}
	return humanize.Time(a.EnteredAt)
}

func dueLabel(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(domain.DateLayout)
}

func caseListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cases with their stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				p, err := e.LoadPipeline(ctx, owner)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p.Cases)
				}
				byID := map[string]domain.Stage{}
				for _, s := range p.Stages {
					byID[s.ID] = s
				}
				tw := newTable(table.Row{"ID", "Client", "Process", "Stage", "Priority", "Due", "Entered"})
				for _, pc := range p.Cases {
					stage := ""
					priority := ""
					var due *time.Time
					if a := pc.Assignment; a != nil {
						if s, ok := byID[a.StageID]; ok {
							stage = stageLabel(s)
						}
						priority = string(a.Priority)
						due = a.DueDate
					} else if len(p.Stages) > 0 {
						stage = stageLabel(p.Stages[0])
					}
					tw.AppendRow(table.Row{pc.Case.ID, pc.Case.ClientName, pc.Case.ProcessNumber, stage, priority, dueLabel(due), enteredAgo(pc.Assignment)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func caseShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show CASE",
		Short: "Show a case, its stage and checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				pc, err := e.GetCase(ctx, owner, args[0])
				if err != nil {
					return err
				}
				stage, err := e.CurrentStage(ctx, owner, args[0])
				if err != nil {
					return err
				}
				tasks, err := e.ListTasks(ctx, owner, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"case": pc.Case, "assignment": pc.Assignment, "current_stage": stage, "tasks": tasks})
				}
				fmt.Printf("Case %s: %s", pc.Case.ID, pc.Case.ClientName)
				if pc.Case.OpposingParty != "" {
					fmt.Printf(" x %s", pc.Case.OpposingParty)
				}
				fmt.Println()
				if pc.Case.ProcessNumber != "" {
					fmt.Printf("Process: %s\n", pc.Case.ProcessNumber)
				}
				fmt.Printf("Stage: %s", stageLabel(stage))
				if a := pc.Assignment; a != nil {
					fmt.Printf(" (entered %s)\nPriority: %s\n", humanize.Time(a.EnteredAt), a.Priority)
					if a.DueDate != nil {
						fmt.Printf("Due: %s\n", dueLabel(a.DueDate))
					}
					if a.Notes != nil {
						fmt.Printf("Notes: %s\n", *a.Notes)
					}
				} else {
					fmt.Println(" (not yet assigned)")
				}
				if len(tasks) > 0 {
					fmt.Println("Tasks:")
					for _, t := range tasks {
						mark := " "
						if t.IsCompleted {
							mark = "x"
						}
						fmt.Printf("  [%s] %s (%s)\n", mark, t.Title, t.ID)
					}
				}
				return nil
			})
		},
	}
}

func caseMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move CASE STAGE",
		Short: "Move a case to a stage (id, position or name)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				stages, err := e.ListStages(ctx, owner)
				if err != nil {
					return err
				}
				to, err := resolveStage(stages, args[1])
				if err != nil {
					return err
				}
				t, err := e.MoveCase(ctx, owner, args[0], to.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Println(t.Activity.Description)
				return nil
			})
		},
	}
}

func caseMetaCmd() *cobra.Command {
	var stage, priority, due, notes string
	var clearDue, clearNotes bool
	cmd := &cobra.Command{
		Use:   "meta CASE",
		Short: "Set a case's stage, priority, due date or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				var patch engine.AssignmentPatch
				if cmd.Flags().Changed("stage") {
					stages, err := e.ListStages(ctx, owner)
					if err != nil {
						return err
					}
					s, err := resolveStage(stages, stage)
					if err != nil {
						return err
					}
					patch.StageID = &s.ID
				}
				if cmd.Flags().Changed("priority") {
					p := domain.Priority(priority)
					patch.Priority = &p
				}
				if cmd.Flags().Changed("due") {
					d, err := time.Parse(domain.DateLayout, due)
					if err != nil {
						return fmt.Errorf("--due must be YYYY-MM-DD")
					}
					patch.DueDate = &d
				}
				if cmd.Flags().Changed("notes") {
					patch.Notes = optionalString(notes)
					patch.ClearNotes = notes == ""
				}
				patch.ClearDueDate = clearDue
				if clearNotes {
					patch.ClearNotes = true
				}
				res, err := e.UpsertAssignment(ctx, owner, args[0], patch)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.Transition != nil {
					fmt.Println(res.Transition.Activity.Description)
				}
				a := res.Assignment
				fmt.Printf("priority=%s due=%s\n", a.Priority, dueLabel(a.DueDate))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "move to stage (id, position or name)")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium, high or urgent")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&clearNotes, "clear-notes", false, "remove the notes")
	return cmd
}

func activityCmd() *cobra.Command {
	a := &cobra.Command{Use: "activity", Short: "Case history"}
	a.AddCommand(&cobra.Command{
		Use:   "list CASE",
		Short: "List a case's activities, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				acts, err := e.ListActivities(ctx, owner, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(acts)
				}
				tw := newTable(table.Row{"When", "Type", "Description"})
				for _, act := range acts {
					tw.AppendRow(table.Row{humanize.Time(act.CreatedAt), act.ActivityType, act.Description})
				}
				tw.Render()
				return nil
			})
		},
	})
	return a
}
