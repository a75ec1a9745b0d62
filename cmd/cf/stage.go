package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseflow/internal/domain"
	"caseflow/internal/engine"
)

func stageCmd() *cobra.Command {
	st := &cobra.Command{
		Use:   "stage",
		Short: "Manage pipeline stages",
		Long:  "Stages are the columns of your pipeline, kept in position order 1..N. New owners get the default stage set from caseflow.yml.",
	}
	st.AddCommand(stageListCmd())
	st.AddCommand(stageSeedCmd())
	st.AddCommand(stageAddCmd())
	st.AddCommand(stageEditCmd())
	st.AddCommand(stageDeleteCmd())
	st.AddCommand(stageReorderCmd())
	return st
}

func printStages(stages []domain.Stage) error {
	if viper.GetBool("json") {
		return printJSON(stages)
	}
	tw := newTable(table.Row{"#", "Name", "Default", "Final", "ID"})
	for _, s := range stages {
		tw.AppendRow(table.Row{s.Position, stageLabel(s), yesNo(s.IsDefault), yesNo(s.IsFinal), s.ID})
	}
	tw.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func stageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				stages, err := e.ListStages(ctx, owner)
				if err != nil {
					return err
				}
				return printStages(stages)
			})
		},
	}
}

func stageSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default stages if the owner has none",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				stages, created, err := e.CreateDefaultStagesIfEmpty(ctx, owner)
				if err != nil {
					return err
				}
				if !created && !viper.GetBool("json") {
					fmt.Println("owner already has stages; nothing seeded")
				}
				return printStages(stages)
			})
		},
	}
}

func stageAddCmd() *cobra.Command {
	var d domain.StageDraft
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a custom stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Name = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				s, err := e.UpsertStage(ctx, owner, engine.StageUpsert{Draft: &d})
				if err != nil {
					return err
				}
				return printStages([]domain.Stage{s})
			})
		},
	}
	cmd.Flags().IntVar(&d.Position, "position", 0, "1-based position; later stages shift down (default: append)")
	cmd.Flags().StringVar(&d.Description, "description", "", "description")
	cmd.Flags().StringVar(&d.Color, "color", "", "display color, e.g. #6366f1")
	cmd.Flags().BoolVar(&d.IsFinal, "final", false, "mark as a final stage")
	return cmd
}

func stageEditCmd() *cobra.Command {
	var name, description, color string
	var final bool
	cmd := &cobra.Command{
		Use:   "edit STAGE",
		Short: "Edit a stage's name, description, color or final flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				stages, err := e.ListStages(ctx, owner)
				if err != nil {
					return err
				}
				target, err := resolveStage(stages, args[0])
				if err != nil {
					return err
				}
				edit := domain.StageEdit{ID: target.ID}
				if cmd.Flags().Changed("name") {
					edit.Name = &name
				}
				if cmd.Flags().Changed("description") {
					edit.Description = &description
				}
				if cmd.Flags().Changed("color") {
					edit.Color = &color
				}
				if cmd.Flags().Changed("final") {
					edit.IsFinal = &final
				}
				s, err := e.UpsertStage(ctx, owner, engine.StageUpsert{Edit: &edit})
				if err != nil {
					return err
				}
				return printStages([]domain.Stage{s})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&color, "color", "", "new color")
	cmd.Flags().BoolVar(&final, "final", false, "final flag")
	return cmd
}

func stageDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete STAGE",
		Short: "Delete a custom stage",
		Long:  "Default stages cannot be deleted. Cases in the deleted stage move to the first stage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				stages, err := e.ListStages(ctx, owner)
				if err != nil {
					return err
				}
				target, err := resolveStage(stages, args[0])
				if err != nil {
					return err
				}
				res, err := e.DeleteStage(ctx, owner, target.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("deleted stage %s\n", res.Stage.Name)
				if res.ReassignedTo != nil {
					fmt.Printf("moved %d case(s) to %s\n", len(res.Activities), res.ReassignedTo.Name)
				}
				return nil
			})
		},
	}
}

func stageReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder STAGE...",
		Short: "Set the full stage order",
		Long:  "List every stage (by id, current position or name) in the new order.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, owner string) error {
				stages, err := e.ListStages(ctx, owner)
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(args))
				for _, ref := range args {
					s, err := resolveStage(stages, ref)
					if err != nil {
						return err
					}
					ids = append(ids, s.ID)
				}
				reordered, err := e.ReorderStages(ctx, owner, ids)
				if err != nil {
					return err
				}
				return printStages(reordered)
			})
		},
	}
}
