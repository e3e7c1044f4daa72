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
	"tradedominance/internal/logging"
	"tradedominance/internal/model"
	"tradedominance/internal/providers"
	"tradedominance/internal/providers/imf"
	"tradedominance/internal/store"
	"tradedominance/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector:", err)
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
		Use:          "collector",
		Short:        "Archive IMF bilateral trade observations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text or json)")
	root.AddCommand(newRunCmd(cfg))
	return root
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var areas string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch observations from the IMF and upsert them into the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("areas") {
				cfg.Query.Areas = config.ParseList(areas)
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			entry := logging.WithRun(log, "collector run")

			providerConfig, err := imf.ConfigFromEnv()
			if err != nil {
				return err
			}
			provider, err := imf.NewWithConfig(providerConfig, entry)
			if err != nil {
				return err
			}
			st, err := openStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := collect(cmd.Context(), provider, st, cfg.Query.ToQuery(), entry); err != nil {
				entry.WithError(err).Error("collector run failed")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path (empty disables persistence)")
	flags.StringVar(&cfg.Query.Start, "start", cfg.Query.Start, "first period to fetch (YYYY or YYYY-MM)")
	flags.StringVar(&cfg.Query.End, "end", cfg.Query.End, "last period to fetch (empty = open-ended)")
	flags.StringVar(&areas, "areas", strings.Join(cfg.Query.Areas, ","), "comma-separated reporting areas (empty = all)")
	return cmd
}

func collect(ctx context.Context, source providers.Source, st store.Store, query model.Query, log logrus.FieldLogger) error {
	observations, err := source.Fetch(ctx, query)
	if errors.Is(err, imf.ErrNoRecords) {
		log.WithField("source", source.Name()).Warn("no records for query, nothing archived")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "fetch from %s", source.Name())
	}

	if err := st.UpsertObservations(ctx, observations); err != nil {
		return errors.Wrap(err, "archive observations")
	}

	areas := make(map[string]struct{})
	for _, observation := range observations {
		areas[observation.ReportingArea] = struct{}{}
	}
	log.WithFields(logrus.Fields{
		"source":       source.Name(),
		"store":        st.Name(),
		"observations": len(observations),
		"areas":        len(areas),
	}).Info("collector run complete")
	return nil
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}
