package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spotify-dataset/internal/pipeline"
	"github.com/ajitpratap0/spotify-dataset/pkg/config"
	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/logger"
	"github.com/ajitpratap0/spotify-dataset/pkg/persister"
	"github.com/ajitpratap0/spotify-dataset/pkg/summary"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "spotify-dataset",
		Short: "Download, save and explore the 900k Spotify tracks dataset",
		Long: `spotify-dataset downloads the devdope/900k-spotify dataset from Kaggle,
keeps a copy of the raw CSV, saves a working copy as CSV or Parquet and prints
an overview of its contents.

Run without a subcommand to do all of it:
  spotify-dataset --format parquet`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, configFile, runPipeline)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	flags.String("data-dir", "", "Directory for the raw copy and the saved dataset (default <project root>/data)")
	flags.StringP("output", "o", "", "Saved dataset location: a path, s3://bucket/key or gs://bucket/object")
	flags.StringP("format", "f", "csv", "Output format (csv, parquet)")
	flags.String("compression", "snappy", "Parquet compression (snappy, zstd, gzip, none)")
	flags.String("file", "", "File inside the dataset to load instead of the first CSV")
	flags.String("dataset", "devdope/900k-spotify", "Dataset handle, owner/slug or owner/slug/versions/N")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "console", "Log encoding (console, json)")
	flags.Duration("timeout", 30*time.Minute, "Overall run timeout")
	flags.String("summary-json", "", "Also write the summary as JSON to this file")
	flags.String("metrics-file", "", "Write run metrics in Prometheus textfile format to this file")
	flags.Bool("trace", false, "Export trace spans to stderr")

	root.AddCommand(
		newVersionCommand(),
		newFetchCommand(&configFile),
		newSaveCommand(&configFile),
		newSummarizeCommand(&configFile),
		newConfigCommand(&configFile),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "spotify-dataset v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newFetchCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the dataset and copy the raw CSV into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configFile, func(ctx context.Context, a *app) error {
				res, err := a.fetcher.Fetch(ctx, a.config.OutputDir())
				if err != nil {
					return err
				}
				rows, cols := res.Frame.Shape()
				fmt.Fprintf(cmd.OutOrStdout(), "Dataset loaded with %d rows and %d columns\n", rows, cols)
				fmt.Fprintf(cmd.OutOrStdout(), "Original copied to: %s\n", res.OriginalPath)
				return nil
			})
		},
	}
}

func newSaveCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "save <input>",
		Short: "Convert a local CSV or Parquet file to the configured format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configFile, func(ctx context.Context, a *app) error {
				f, err := a.persister.Load(ctx, args[0])
				if err != nil {
					return err
				}
				format, err := persister.ParseFormat(a.config.Format)
				if err != nil {
					return err
				}
				path, err := a.persister.Save(ctx, f, a.config.OutputPath(), format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dataset saved to %s\n", path)
				return nil
			})
		},
	}
}

func newSummarizeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <file>",
		Short: "Print the overview of a local CSV or Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configFile, func(ctx context.Context, a *app) error {
				f, err := a.persister.Load(ctx, args[0])
				if err != nil {
					return err
				}
				s := summary.Summarize(f)
				if err := s.Print(cmd.OutOrStdout()); err != nil {
					return err
				}
				return a.writeSummaryJSON(s)
			})
		},
	}
}

func newConfigCommand(configFile *string) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the effective configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file (default spotify.yaml)",
		Long: `Write the effective configuration, defaults merged with the environment and
any flags given, to a YAML file that --config can load later. The registry key
is never written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "spotify.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf(errors.ErrorTypeValidation, "%s already exists, use --force to overwrite", path)
			}

			cfg, err := config.Load(config.Options{File: *configFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Options{File: *configFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			return config.Dump(cmd.OutOrStdout(), cfg)
		},
	})
	return cfgCmd
}

// runPipeline executes fetch, save and summarize with the loaded configuration
func runPipeline(ctx context.Context, a *app) error {
	format, err := persister.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}

	p := pipeline.New(a.fetcher, a.persister, logger.Get(), &pipeline.Config{
		OutputDir:  a.config.OutputDir(),
		OutputPath: a.config.OutputPath(),
		Format:     format,
		Dataset:    a.config.Dataset,
	})

	a.logger.Info("starting pipeline",
		zap.String("format", string(format)),
		zap.String("data_dir", a.config.OutputDir()))

	res, err := p.Run(ctx, a.out)
	if err != nil {
		return err
	}
	return a.writeSummaryJSON(res.Summary)
}
