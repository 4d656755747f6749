package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smart-reader/internal/repository"
	"smart-reader/internal/session"
)

func newNotesCommand(ctx *commandContext) *cobra.Command {
	notesCmd := &cobra.Command{
		Use:   "notes",
		Short: "Inspect saved notes",
	}

	notesCmd.AddCommand(&cobra.Command{
		Use:   "list <project-id>",
		Short: "List the notes of a guest project, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocal(func(local *repository.LocalProjectRepository) error {
				notes, err := ctx.guestProjects(local).ListNotes(cmd.Context(), session.NewGuest(), args[0])
				if err != nil {
					return fmt.Errorf("project %s: %w", args[0], err)
				}

				out := cmd.OutOrStdout()
				if len(notes) == 0 {
					fmt.Fprintln(out, "No notes")
					return nil
				}
				rows := make([][]string, 0, len(notes))
				for _, n := range notes {
					rows = append(rows, []string{n.En, n.Bn})
				}
				fmt.Fprintln(out, renderTable([]string{"English", "Bengali"}, rows, nil))
				return nil
			})
		},
	})

	return notesCmd
}
