package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"smart-reader/internal/provider"
	"smart-reader/internal/service"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <text...>",
		Short: "Translate a selection the way the reader does",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			translator := provider.NewTranslator(&http.Client{Timeout: cfg.Translation.Timeout}, provider.TranslatorOptions{
				BaseURL:           cfg.Translation.BaseURL,
				SourceLang:        cfg.Translation.SourceLang,
				TargetLang:        cfg.Translation.TargetLang,
				RequestsPerSecond: cfg.Translation.RequestsPerSecond,
			}, ctx.logger())

			resp, err := service.NewTranslationService(translator).Translate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Translation)
			if resp.Syllables != "" {
				fmt.Fprintf(out, "Syllables: %s\n", resp.Syllables)
			}
			return nil
		},
	}
}
