// Command cligrade grades CLI programs against a declarative specification:
// it runs the target executables through the configured assertions and
// renders the resulting score as a report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/cligrade/grader/internal/config"
	"github.com/cligrade/grader/internal/environment"
	"github.com/cligrade/grader/internal/gatherer/natsgath"
	"github.com/cligrade/grader/internal/gatherer/termgath"
	"github.com/cligrade/grader/internal/grader"
	"github.com/cligrade/grader/internal/report"
	"github.com/cligrade/grader/internal/score"
)

func main() {
	env := environment.ReadEnvConfig()

	cmd := &cli.Command{
		Name:      "cligrade",
		Usage:     "grade CLI programs against a declarative test specification",
		ArgsUsage: "<config.toml|config.json> [target-path ...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "program",
				Usage: "bind a target path by program name, as name=path (repeatable)",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "override the grading mode (absolute|weighted)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "override the report output (stdout|txt|json)",
			},
			&cli.StringFlag{
				Name:  "report-path",
				Usage: "report file path for txt and json outputs (.zst compresses json)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "include expected/obtained diagnostics for failed assertions",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: env.LogLevel,
			},
			&cli.StringFlag{
				Name:  "nats-url",
				Usage: "publish grading progress to this NATS server",
				Value: env.NatsURL,
			},
			&cli.StringFlag{
				Name:  "nats-subject",
				Usage: "NATS subject for grading progress messages",
				Value: env.NatsSubject,
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("grading failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	setupLogger(cmd.String("log-level"))

	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("missing config file argument")
	}

	f, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if err := applyOverrides(f, cmd); err != nil {
		return err
	}

	named, err := parseNamedTargets(cmd.StringSlice("program"))
	if err != nil {
		return err
	}
	cfg, err := f.BuildGraderConfig(args[1:], named)
	if err != nil {
		return err
	}

	var gatherers []grader.EvalResGatherer
	if f.Logging != config.LoggingSilent {
		gatherers = append(gatherers, termgath.New(os.Stderr, f.Logging == config.LoggingVerbose))
	}
	if url := cmd.String("nats-url"); url != "" {
		nc, err := nats.Connect(url)
		if err != nil {
			return fmt.Errorf("connect to NATS at %q: %w", url, err)
		}
		defer nc.Drain()
		gatherers = append(gatherers, natsgath.New(nc, cmd.String("nats-subject")))
	}

	result, err := grader.New(cfg, grader.MultiGatherer(gatherers)).Run()
	if err != nil {
		return err
	}

	if err := writeReport(f.Report, result); err != nil {
		return err
	}

	if !result.Score.Full() {
		return cli.Exit(fmt.Sprintf("grade below full marks: %s", result.Score), 1)
	}
	return nil
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})))
}

func applyOverrides(f *config.File, cmd *cli.Command) error {
	if mode := cmd.String("mode"); mode != "" {
		if !score.Mode(mode).Valid() {
			return fmt.Errorf("unknown grading mode %q", mode)
		}
		f.Grading.Mode = mode
	}
	if out := cmd.String("report"); out != "" {
		switch out {
		case config.OutputStdout, config.OutputTxt, config.OutputJSON:
			f.Report.Output = out
		default:
			return fmt.Errorf("unknown report output %q", out)
		}
	}
	if path := cmd.String("report-path"); path != "" {
		f.Report.Path = path
	}
	if cmd.Bool("verbose") {
		f.Report.Verbose = true
	}
	return nil
}

func parseNamedTargets(entries []string) (map[string]string, error) {
	named := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, path, ok := strings.Cut(entry, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("malformed --program value %q, want name=path", entry)
		}
		named[name] = path
	}
	return named, nil
}

func writeReport(rep config.Report, result *grader.GradingResult) error {
	switch rep.Output {
	case config.OutputStdout:
		report.RenderText(os.Stdout, result, rep.Verbose)
		return nil
	case config.OutputTxt:
		path := rep.Path
		if path == "" {
			path = "report.txt"
		}
		return report.WriteText(path, result, rep.Verbose)
	case config.OutputJSON:
		path := rep.Path
		if path == "" {
			path = "report.json"
		}
		return report.WriteJSON(path, result)
	default:
		return fmt.Errorf("unknown report output %q", rep.Output)
	}
}
