package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tradedominance/internal/config"
	"tradedominance/internal/export"
	"tradedominance/internal/logging"
	"tradedominance/internal/pipeline"
	"tradedominance/internal/providers"
	"tradedominance/internal/providers/imf"
	"tradedominance/internal/store/sqlite"
)

const (
	sourceIMF    = "imf"
	sourceSQLite = "sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "publisher:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "publisher",
		Short:        "Publish the dominant import partner dataset",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text or json)")
	root.AddCommand(newBuildCmd(cfg))
	return root
}

func newBuildCmd(cfg *config.Config) *cobra.Command {
	var areas string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch observations, resolve dominant partners and write the output file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("areas") {
				cfg.Query.Areas = config.ParseList(areas)
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			entry := logging.WithRun(log, "publisher build")
			if err := build(cmd.Context(), cfg, entry); err != nil {
				entry.WithError(err).Error("publisher build failed")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Source, "source", cfg.Source, "observation source (imf or sqlite)")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path for --source sqlite")
	flags.StringVar(&cfg.Output, "out", cfg.Output, "output JSON path")
	flags.StringVar(&cfg.Workbook, "xlsx", cfg.Workbook, "optional XLSX workbook path")
	flags.StringVar(&cfg.Query.Start, "start", cfg.Query.Start, "first period (YYYY or YYYY-MM)")
	flags.StringVar(&cfg.Query.End, "end", cfg.Query.End, "last period (empty = open-ended)")
	flags.StringVar(&areas, "areas", strings.Join(cfg.Query.Areas, ","), "comma-separated reporting areas (empty = all)")
	return cmd
}

func build(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	if strings.TrimSpace(cfg.Output) == "" {
		return errors.New("output path is required")
	}

	source, closeSource, err := openSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	records, err := pipeline.New(source, log).Run(ctx, cfg.Query.ToQuery())
	if err != nil {
		return err
	}

	published := export.Resolvable(records)
	if dropped := len(records) - len(published); dropped > 0 {
		log.WithField("dropped", dropped).Info("dropped records without an ISO3 code")
	}

	if err := export.Publish(cfg.Output, strings.TrimSpace(cfg.Workbook), published); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"source":   source.Name(),
		"records":  len(published),
		"output":   cfg.Output,
		"workbook": cfg.Workbook,
	}).Info("publisher build complete")
	return nil
}

func openSource(cfg *config.Config, log logrus.FieldLogger) (providers.Source, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case sourceIMF:
		providerConfig, err := imf.ConfigFromEnv()
		if err != nil {
			return nil, noop, err
		}
		provider, err := imf.NewWithConfig(providerConfig, log)
		if err != nil {
			return nil, noop, err
		}
		return provider, noop, nil
	case sourceSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			return nil, noop, errors.New("--db is required with --source sqlite")
		}
		st, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	default:
		return nil, noop, errors.Errorf("unknown source: %s", cfg.Source)
	}
}
