package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smart-reader/internal/repository"
	"smart-reader/internal/service"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect display preferences",
	}

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the theme preferences stored on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocal(func(local *repository.LocalProjectRepository) error {
				prefs, err := service.NewPreferencesService(local, ctx.logger()).Get(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Setting", "Value"},
					[][]string{
						{"Dark mode", onOff(prefs.DarkMode)},
						{"Eye comfort", onOff(prefs.EyeComfort)},
					},
					nil,
				))
				return nil
			})
		},
	})

	return prefsCmd
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
