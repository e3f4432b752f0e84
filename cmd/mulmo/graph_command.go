package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mulmocast/internal/assemble"
	"mulmocast/internal/pipeline"
)

type graphView struct {
	Inputs      []graphInput `json:"inputs"`
	FilterGraph string       `json:"filterGraph"`
	VideoLabel  string       `json:"videoLabel"`
	AudioMap    string       `json:"audioMap,omitempty"`
	Duration    float64      `json:"duration"`
	Args        []string     `json:"args"`
}

type graphInput struct {
	Path    string   `json:"path"`
	Options []string `json:"options,omitempty"`
}

func newGraphCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options
	var jsonOutput bool
	var showCommand bool

	cmd := &cobra.Command{
		Use:   "graph <script>",
		Short: "Print the movie filter graph without encoding",
		Long: "Rebuild the encoder invocation for a script from its saved studio\n" +
			"document. Run `mulmo movie` first so every beat has its assets.",
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
			plan, err := pipeline.New(cfg, logger).Graph(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, newGraphView(plan))
			}
			if showCommand {
				fmt.Fprintln(out, shellJoin(append([]string{cfg.FFmpegBinary()}, plan.Command("out.mp4")...)))
				return nil
			}
			fmt.Fprintln(out, renderGraph(plan))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Languages, "lang", "l", nil, "Narration language to plan (defaults to the script language)")
	cmd.Flags().BoolVar(&opts.NoBGM, "no-bgm", false, "Plan without background music")
	cmd.Flags().BoolVar(&opts.EmbedBGM, "embed-bgm", false, "Embed the background music mix in the graph")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON")
	cmd.Flags().BoolVar(&showCommand, "command", false, "Print the full encoder command line")
	return cmd
}

func newGraphView(plan assemble.Plan) graphView {
	view := graphView{
		FilterGraph: plan.FilterGraph,
		VideoLabel:  plan.VideoLabel,
		AudioMap:    plan.AudioMap,
		Duration:    plan.Duration,
		Args:        plan.Args,
	}
	for _, in := range plan.Inputs {
		view.Inputs = append(view.Inputs, graphInput{Path: in.Path, Options: in.Options})
	}
	return view
}

func renderGraph(plan assemble.Plan) string {
	rows := make([][]string, 0, len(plan.Inputs))
	for i, in := range plan.Inputs {
		rows = append(rows, []string{strconv.Itoa(i), in.Path, strings.Join(in.Options, " ")})
	}
	var b strings.Builder
	b.WriteString(renderTable(tableSpec{
		Title:   "Inputs",
		Headers: []string{"#", "Path", "Options"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft},
	}))
	b.WriteString("\n\nFilter graph:\n")
	for _, line := range plan.Graph.Lines() {
		b.WriteString("  " + line + "\n")
	}
	audio := plan.AudioMap
	if audio == "" {
		audio = "none"
	}
	fmt.Fprintf(&b, "\nVideo: [%s]  Audio: %s  Duration: %s", plan.VideoLabel, audio, formatSeconds(plan.Duration))
	return b.String()
}

// shellJoin quotes arguments that a POSIX shell would split or expand.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"\\$`;&|<>()[]*?!{}#~") {
			quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
			continue
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}
