package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/cpd/internal/logging"
	"github.com/panbanda/cpd/internal/metrics"
	"github.com/panbanda/cpd/internal/output"
	"github.com/panbanda/cpd/internal/progress"
	"github.com/panbanda/cpd/internal/report"
	"github.com/panbanda/cpd/pkg/config"
	"github.com/panbanda/cpd/pkg/detector"
	"github.com/panbanda/cpd/pkg/scanner"
)

var version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitClones  = 1
	exitUsage   = 2
	exitFailure = 3
)

// usageError marks failures caused by the invocation or configuration
// rather than by the run itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code.
func run(args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(args)
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := ec.Error(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return ec.ExitCode()
	}

	output.NewFormatter(output.FormatText, stderr, !color.NoColor).Error("%v", err)

	var ue *usageError
	if errors.As(err, &ue) || errors.Is(err, config.ErrInvalid) || errors.Is(err, detector.ErrInvalidThreshold) {
		return exitUsage
	}
	return exitFailure
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "cpd",
		Usage:     "Copy/paste detector",
		UsageText: "cpd [options] <directory|file>...",
		Version:   version,
		Description: `cpd finds duplicated code: token runs of at least --min-tokens tokens
spanning at least --min-lines lines that occur more than once.

Exit status is 0 when no clones are found, 1 when clones are found,
2 for usage or configuration errors and 3 for other failures.`,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     detectFlags(),
		Action:    runDetect,
		Commands:  []*cli.Command{initCmd()},
		// errors are mapped to exit codes by run
		ExitErrHandler: func(*cli.Context, error) {},
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return &usageError{err: err}
		},
	}
}

func detectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (TOML, YAML, or JSON)",
			EnvVars: []string{"CPD_CONFIG"},
		},
		&cli.IntFlag{
			Name:  "min-lines",
			Value: 5,
			Usage: "Minimum number of identical lines",
		},
		&cli.IntFlag{
			Name:  "min-tokens",
			Value: 70,
			Usage: "Minimum number of identical tokens",
		},
		&cli.StringSliceFlag{
			Name:  "names",
			Usage: "Comma-separated file name patterns to check (default: all supported languages)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Exclude a directory or glob from the analysis (repeatable)",
		},
		&cli.StringFlag{
			Name:  "log-pmd",
			Usage: "Write the report in PMD-CPD XML format to `FILE`",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format: text, json, markdown, toon, yaml",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Only print the final summary",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Print duplicated code",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show progress bar",
		},
		&cli.StringFlag{
			Name:  "tokenizer",
			Value: config.TokenizerLexer,
			Usage: "Tokenizer: lexer or syntax",
		},
		&cli.BoolFlag{
			Name:  "normalize-identifiers",
			Usage: "Treat identifiers that differ only in name as equal",
		},
		&cli.BoolFlag{
			Name:  "normalize-literals",
			Usage: "Treat literals that differ only in value as equal",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Parallel workers (0 = 2x CPU count)",
		},
		&cli.Int64Flag{
			Name:  "max-file-size",
			Usage: "Skip files larger than this many bytes (0 = no limit)",
		},
		&cli.BoolFlag{
			Name:  "no-gitignore",
			Usage: "Do not honor .gitignore files",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write Prometheus metrics in textfile format to `FILE`",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: "warn",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "Log format: text or json",
		},
	}
}

// loadConfig reads the config file named by --config, or the discovered
// one, and applies the flags that were set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, &usageError{err: err}
	}

	d := &cfg.Detection
	if c.IsSet("min-lines") {
		d.MinLines = c.Int("min-lines")
	}
	if c.IsSet("min-tokens") {
		d.MinTokens = c.Int("min-tokens")
	}
	if c.IsSet("tokenizer") {
		d.Tokenizer = c.String("tokenizer")
	}
	if c.IsSet("normalize-identifiers") {
		d.NormalizeIdentifiers = c.Bool("normalize-identifiers")
	}
	if c.IsSet("normalize-literals") {
		d.NormalizeLiterals = c.Bool("normalize-literals")
	}
	if c.IsSet("workers") {
		d.Workers = c.Int("workers")
	}
	if c.IsSet("max-file-size") {
		d.MaxFileSize = c.Int64("max-file-size")
	}

	s := &cfg.Scan
	if c.IsSet("names") {
		s.Names = c.StringSlice("names")
	}
	if c.IsSet("exclude") {
		s.Exclude = append(s.Exclude, c.StringSlice("exclude")...)
	}
	if c.Bool("no-gitignore") {
		s.Gitignore = false
	}

	o := &cfg.Output
	if c.IsSet("format") {
		o.Format = c.String("format")
	}
	if c.IsSet("quiet") {
		o.Quiet = c.Bool("quiet")
	}
	if c.IsSet("verbose") {
		o.Verbose = c.Bool("verbose")
	}
	if c.IsSet("progress") {
		o.Progress = c.Bool("progress")
	}
	if c.IsSet("log-pmd") {
		o.PMD = c.String("log-pmd")
	}
	if c.IsSet("metrics-file") {
		o.MetricsFile = c.String("metrics-file")
	}
	if c.Bool("no-color") {
		o.Color = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDetect(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return usage("no paths given; usage: %s", c.App.UsageText)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	stderr := c.App.ErrWriter
	logger := logging.Setup(stderr, c.String("log-level"), c.String("log-format"))
	notes := output.NewFormatter(output.FormatText, stderr, cfg.Output.Color)

	files, err := scanner.New(cfg).ScanPaths(paths)
	if err != nil {
		if errors.Is(err, scanner.ErrNoFiles) || errors.Is(err, os.ErrNotExist) {
			return &usageError{err: err}
		}
		return err
	}
	logger.Debug("scanned paths", "paths", len(paths), "files", len(files))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []detector.Option{
		detector.WithConfig(cfg.Detection),
		detector.WithLogger(logging.WithComponent(logger, "detector")),
	}
	var tracker *progress.Tracker
	if cfg.Output.Progress && !cfg.Output.Quiet {
		tracker = progress.NewTracker(stderr, "Tokenizing", len(files))
		opts = append(opts, detector.WithProgress(tracker.Tick))
	}

	res, err := detector.New(opts...).Detect(ctx, files, nil)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.Finish()
		}
	}
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if err := writeReport(c, cfg, res); err != nil {
		return err
	}
	if n := len(res.Skipped); n > 0 && !cfg.Output.Quiet {
		notes.Warning("skipped %d unreadable files", n)
	}

	if cfg.Output.PMD != "" {
		if err := report.WritePMDFile(cfg.Output.PMD, res, nil); err != nil {
			return fmt.Errorf("writing pmd report: %w", err)
		}
		if !cfg.Output.Quiet {
			notes.Info("Wrote PMD report to %s", cfg.Output.PMD)
		}
	}
	if cfg.Output.MetricsFile != "" {
		m := metrics.New()
		m.Observe(res)
		if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		if !cfg.Output.Quiet {
			notes.Info("Wrote metrics to %s", cfg.Output.MetricsFile)
		}
	}

	if !res.Empty() {
		return cli.Exit("", exitClones)
	}
	return nil
}

func writeReport(c *cli.Context, cfg *config.Config, res *detector.Result) error {
	w := c.App.Writer
	colored := cfg.Output.Color
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := renderReport(f, false, cfg, res); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return renderReport(w, colored, cfg, res)
}

func renderReport(w io.Writer, colored bool, cfg *config.Config, res *detector.Result) error {
	rep, err := report.New(res, report.Options{
		Verbose: cfg.Output.Verbose,
		Quiet:   cfg.Output.Quiet,
	})
	if err != nil {
		return err
	}
	return output.NewFormatter(output.ParseFormat(cfg.Output.Format), w, colored).Output(rep)
}
