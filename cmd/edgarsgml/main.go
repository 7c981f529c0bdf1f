package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coolbeans/edgarsgml/pkg/config"
	"github.com/coolbeans/edgarsgml/pkg/convert"
	"github.com/coolbeans/edgarsgml/pkg/filing"
	"github.com/coolbeans/edgarsgml/pkg/sgml"
	"github.com/coolbeans/edgarsgml/pkg/source"
	"github.com/coolbeans/edgarsgml/pkg/watch"
)

var version = "0.1.0"

// app carries state shared by every subcommand once the root has run.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "edgarsgml",
		Short: "SEC EDGAR submission converter",
		Long: `edgarsgml parses SEC EDGAR submission text files (.txt, .nc) into
ordered record trees and converts them to JSON, YAML or normalized SGML.

Header sections are read from the indented SEC-HEADER block, tag blocks
from the <SUBMISSION>/<SEC-DOCUMENT> markup, and repeatable fields such as
FILER and DOCUMENT are always emitted as lists.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(convertCmd(a))
	rootCmd.AddCommand(inspectCmd(a))
	rootCmd.AddCommand(watchCmd(a))
	return rootCmd
}

// setup loads configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	a.logger, err = zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// conversionFlags are the settings convert and watch accept on the command line.
type conversionFlags struct {
	outputDir string
	format    string
	encoding  string
	workers   int
	force     bool
}

func (f *conversionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for converted files")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: json, yaml, sgml")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "Input character encoding (default UTF-8)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Concurrent conversions")
	cmd.Flags().BoolVar(&f.force, "force", false, "Reconvert inputs the manifest reports as unchanged")
}

// apply overlays flags the user set onto cfg.
func (f *conversionFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if flags.Changed("format") {
		cfg.Format = f.format
	}
	if flags.Changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("force") {
		cfg.Force = f.force
	}
	return cfg.Validate()
}

func convertCmd(a *app) *cobra.Command {
	var (
		flags      conversionFlags
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "convert <file-or-dir>...",
		Short: "Convert filings to JSON, YAML or SGML",
		Long: `Convert one or more EDGAR submission files. Directory arguments are
searched recursively for files with the configured extensions.

Example:
  edgarsgml convert 0000320193-24-000001.txt
  edgarsgml convert --format yaml --output-dir converted filings/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}

			inputs, err := convert.CollectInputs(args, a.cfg.Watch.Extensions)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no filings found (extensions: %v)", a.cfg.Watch.Extensions)
			}

			converter, err := convert.New(a.cfg, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := converter.ConvertAll(ctx, inputs)
			if report != nil {
				if jsonOutput {
					fmt.Fprintln(cmd.OutOrStdout(), report.JSON())
				} else {
					fmt.Fprint(cmd.OutOrStdout(), report.String())
				}
			}
			if err != nil {
				return err
			}
			if report.Failures > 0 {
				return fmt.Errorf("%d of %d filings failed to convert", report.Failures, len(report.Results))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func inspectCmd(a *app) *cobra.Command {
	var (
		encoding   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize a filing and list parse warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("encoding") {
				a.cfg.Encoding = encoding
			}

			result, err := source.Decode(args[0], a.cfg.Encoding, sgml.WithLogger(a.logger))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(result.Record, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal record: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprint(out, filing.FormatSummary(filing.FromRecord(result.Record)))
			if len(result.Warnings) > 0 {
				fmt.Fprintf(out, "\nWarnings (%d):\n", len(result.Warnings))
				for _, w := range result.Warnings {
					fmt.Fprintf(out, "  %s\n", w)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "", "Input character encoding (default UTF-8)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the decoded record as JSON")
	return cmd
}

func watchCmd(a *app) *cobra.Command {
	var (
		flags  conversionFlags
		dir    string
		settle time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert filings as they arrive in a directory",
		Long: `Watch a directory and convert each filing written into it.
Runs until interrupted.

Example:
  edgarsgml watch --dir incoming --output-dir converted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("dir") {
				a.cfg.Watch.Dir = dir
			}
			if cmd.Flags().Changed("settle") {
				a.cfg.Watch.Settle = settle
			}
			if err := flags.apply(cmd, a.cfg); err != nil {
				return err
			}
			if a.cfg.Watch.Dir == "" {
				return fmt.Errorf("no watch directory (set --dir or watch.dir in the config)")
			}

			converter, err := convert.New(a.cfg, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, a, converter)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to watch")
	cmd.Flags().DurationVar(&settle, "settle", config.DefaultSettle, "Quiet period before a changed file is converted")
	return cmd
}

// runWatch blocks until ctx is done.
func runWatch(ctx context.Context, a *app, converter *convert.Converter) error {
	handler := func(ctx context.Context, path string) error {
		if _, err := converter.ConvertFile(ctx, path); err != nil {
			return err
		}
		return converter.SaveManifest()
	}

	w := watch.New(a.cfg.Watch.Dir, a.cfg.Watch.Extensions, handler, a.logger,
		watch.WithSettleDelay(a.cfg.Watch.Settle))
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	a.logger.Info("Stopped watching", zap.String("dir", a.cfg.Watch.Dir))
	return nil
}
