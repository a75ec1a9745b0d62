package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

func taskCmd() *cobra.Command {
	t := &cobra.Command{
		Use:   "task",
		Short: "Per-case checklist",
	}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskAddCmd())
	t.AddCommand(taskToggleCmd("done", "Mark a task completed", true))
	t.AddCommand(taskToggleCmd("undo", "Reopen a completed task", false))
	t.AddCommand(taskDeleteCmd())
	return t
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list CASE",
		Short: "List a case's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				tasks, err := e.ListTasks(ctx, owner, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := newTable(table.Row{"ID", "Title", "Done", "Completed"})
				for _, t := range tasks {
					completed := ""
					if t.CompletedAt != nil {
						completed = humanize.Time(*t.CompletedAt)
					}
					tw.AppendRow(table.Row{t.ID, t.Title, yesNo(t.IsCompleted), completed})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func taskAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add CASE TITLE...",
		Short: "Add a task to a case",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				t, err := e.AddTask(ctx, owner, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskToggleCmd(use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " TASK",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				t, err := e.ToggleTask(ctx, owner, args[0], completed)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete TASK",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				if err := e.DeleteTask(ctx, owner, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func printTask(t domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(t)
	}
	mark := " "
	if t.IsCompleted {
		mark = "x"
	}
	fmt.Printf("[%s] %s (%s)\n", mark, t.Title, t.ID)
	return nil
}
