package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mulmocast/internal/language"
	"mulmocast/internal/pipeline"
)

func newMovieCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "movie <script>",
		Short: "Generate every beat asset and render the movie",
		Long: "Generate images, movies, and narration for every beat of a JSON or YAML\n" +
			"script, then render one movie per language. Finished assets are reused on\n" +
			"the next run unless --force is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.ScriptPath = args[0]

			result, err := pipeline.New(cfg, logger).Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("run %s: %w", result.RunID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished (%s)\n", result.RunID, formatSeconds(result.Duration))
			for _, lang := range sortedKeys(result.Movies) {
				fmt.Fprintf(out, "  %-8s %s\n", lang, result.Movies[lang])
			}
			fmt.Fprintf(out, "Studio: %s\n", result.StudioPath)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Languages, "lang", "l", nil, "Narration languages (repeatable; defaults to the script language)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Regenerate assets even when they already exist")
	cmd.Flags().BoolVar(&opts.NoBGM, "no-bgm", false, "Skip background music")
	cmd.Flags().BoolVar(&opts.EmbedBGM, "embed-bgm", false, "Mix background music inside the movie graph")
	cmd.Flags().BoolVar(&opts.SkipPreflight, "skip-preflight", false, "Skip binary and directory checks")
	return cmd
}

func languageLabel(code string) string {
	if strings.TrimSpace(code) == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", code, language.DisplayName(code))
}
