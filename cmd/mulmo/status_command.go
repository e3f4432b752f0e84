package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mulmocast/internal/journal"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recent runs or the progress of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return showRun(cmd, store, args[0], jsonOutput)
			}
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs, shouldColorize(out), time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list (0 lists all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func renderRunTable(runs []journal.Run, colorize bool, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.ScriptName,
			strings.Join(run.Languages, ","),
			paint(string(run.Status), statusKindColor(runStatusKind(run.Status)), colorize),
			formatTimestamp(run.StartedAt),
			elapsed(run, now),
		})
	}
	return renderTable(tableSpec{
		Headers:  []string{"Run", "Script", "Languages", "Status", "Started", "Elapsed"},
		Rows:     rows,
		Aligns:   []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		MaxWidth: 48,
	})
}

func elapsed(run journal.Run, now time.Time) string {
	end := now
	if run.FinishedAt != nil {
		end = *run.FinishedAt
	}
	if run.StartedAt.IsZero() || end.Before(run.StartedAt) {
		return "-"
	}
	return end.Sub(run.StartedAt).Round(time.Second).String()
}

type runDetail struct {
	Run      journal.Run     `json:"run"`
	Progress journal.Summary `json:"progress"`
}

func showRun(cmd *cobra.Command, store *journal.Store, id string, jsonOutput bool) error {
	run, err := findRun(cmd, store, id)
	if err != nil {
		return err
	}
	summary, err := store.Summarize(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, runDetail{Run: *run, Progress: summary})
	}
	writeRunDetail(out, *run, summary, shouldColorize(out))
	return nil
}

// findRun resolves a full run ID or an unambiguous prefix of a recent one.
func findRun(cmd *cobra.Command, store *journal.Store, id string) (*journal.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id is required")
	}
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	runs, err := store.ListRuns(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var matches []journal.Run
	for _, candidate := range runs {
		if strings.HasPrefix(candidate.ID, id) {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run %q not found", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q matches %s", id, plural(len(matches), "run"))
	}
}

func writeRunDetail(out io.Writer, run journal.Run, summary journal.Summary, colorize bool) {
	lines := renderSectionHeader("Run "+run.ID, colorize)
	lines = append(lines,
		renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize),
		renderStatusLine("Script", statusInfo, run.ScriptPath, colorize),
	)
	for _, lang := range run.Languages {
		lines = append(lines, renderStatusLine("Language", statusInfo, languageLabel(lang), colorize))
	}
	lines = append(lines, renderStatusLine("Started", statusInfo, formatTimestamp(run.StartedAt), colorize))
	if run.FinishedAt != nil {
		lines = append(lines, renderStatusLine("Elapsed", statusInfo, elapsed(run, time.Now()), colorize))
	}
	if run.OutputPath != "" {
		lines = append(lines, renderStatusLine("Output", statusOK, run.OutputPath, colorize))
	}
	if run.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Progress", colorize)...)
	types := make(map[string]struct{}, len(summary.Completed)+len(summary.Running))
	for kind := range summary.Completed {
		types[kind] = struct{}{}
	}
	for kind := range summary.Running {
		types[kind] = struct{}{}
	}
	if len(types) == 0 {
		lines = append(lines, statusIndent+"No beat activity recorded")
	}
	names := make([]string, 0, len(types))
	for kind := range types {
		names = append(names, kind)
	}
	sort.Strings(names)
	for _, kind := range names {
		message := plural(summary.Completed[kind], "beat") + " done"
		status := statusOK
		if running := summary.Running[kind]; len(running) > 0 {
			message += fmt.Sprintf(", running: %s", strings.Join(running, ", "))
			status = statusWarn
		}
		lines = append(lines, renderStatusLine(kind, status, message, colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}
