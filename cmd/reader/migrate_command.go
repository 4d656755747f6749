package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smart-reader/internal/domain"
	"smart-reader/internal/repository"
	"smart-reader/internal/service"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move guest projects into an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			client, _, err := repository.ConnectCouchDB(cmd.Context(), cfg.Database.URL(), cfg.Database.Name)
			if err != nil {
				return err
			}

			userRepo := repository.NewUserRepository(client, cfg.Database.Name)
			auth := service.NewAuthService(userRepo, nil, nil, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
			login, err := auth.Login(cmd.Context(), &domain.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}

			return ctx.withLocal(func(local *repository.LocalProjectRepository) error {
				remote := repository.NewRemoteProjectRepository(client, cfg.Database.Name, logger)
				migrator := service.NewMigrationService(local, remote, logNotifier{logger: logger}, logger)

				report, err := migrator.MigrateGuestProjects(cmd.Context(), login.User.ID)
				if report != nil {
					printReport(cmd, report)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", service.MigrationFailedMessage, err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")

	return cmd
}

func printReport(cmd *cobra.Command, report *domain.MigrationReport) {
	cleared := "no"
	if report.LocalCleared {
		cleared = "yes"
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Found", "Skipped", "Migrated", "Notes", "Local cleared"},
		[][]string{{
			fmt.Sprint(report.ProjectsFound),
			fmt.Sprint(report.ProjectsSkipped),
			fmt.Sprint(report.ProjectsMigrated),
			fmt.Sprint(report.NotesMigrated),
			cleared,
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
}
