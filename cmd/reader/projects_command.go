package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"smart-reader/internal/domain"
	"smart-reader/internal/repository"
	"smart-reader/internal/service"
	"smart-reader/internal/session"
)

// logNotifier stands in for connected clients; the CLI has none.
type logNotifier struct {
	logger *log.Logger
}

func (n logNotifier) Notify(key string, event domain.Event) {
	n.logger.Debug("event", "session", key, "type", event.Type, "project", event.ProjectID)
}

func (n logNotifier) NotifyAll(event domain.Event) {
	n.Notify("*", event)
}

func (c *commandContext) guestProjects(local *repository.LocalProjectRepository) *service.ProjectService {
	logger := c.logger()
	return service.NewProjectService(local, nil, logNotifier{logger: logger}, logger, service.ProjectServiceOptions{
		GuestLimit: c.config.Guest.MaxProjects,
	})
}

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect and manage guest projects",
	}

	projectsCmd.AddCommand(newProjectsListCommand(ctx))
	projectsCmd.AddCommand(newProjectsDeleteCommand(ctx))

	return projectsCmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List guest projects, pinned first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocal(func(local *repository.LocalProjectRepository) error {
				projects, err := ctx.guestProjects(local).ListProjects(cmd.Context(), session.NewGuest())
				if err != nil {
					return err
				}
				printProjects(cmd.OutOrStdout(), projects)
				return nil
			})
		},
	}
}

func printProjects(out io.Writer, projects []*domain.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects")
		return
	}

	const stampLayout = "2006-01-02 15:04"
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		pinned := ""
		if p.Pinned {
			pinned = "yes"
		}
		updated := "-"
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Local().Format(stampLayout)
		}
		rows = append(rows, []string{p.ID, p.Name, pinned, strconv.Itoa(len(p.Notes)), updated})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Name", "Pinned", "Notes", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func newProjectsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a guest project and its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocal(func(local *repository.LocalProjectRepository) error {
				svc := ctx.guestProjects(local)
				if _, err := svc.GetProject(cmd.Context(), session.NewGuest(), args[0]); err != nil {
					return fmt.Errorf("project %s: %w", args[0], err)
				}
				if err := svc.DeleteProject(cmd.Context(), session.NewGuest(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
				return nil
			})
		},
	}
}
