package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nainya/redlist/internal/config"
	"github.com/nainya/redlist/internal/logger"
	"github.com/nainya/redlist/internal/metrics"
	"github.com/nainya/redlist/pkg/document"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "redlist",
		Short: "Species profile service",
		Long: `redlist loads a line-delimited JSON corpus of species fragments,
groups them into one profile per species, and serves paginated,
filterable search over HTTP and gRPC.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to config file")
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd())
	root.AddCommand(newSpeciesCmd())
	root.AddCommand(newCorpusCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// loadConfig resolves the configuration for cmd and builds a logger that
// writes to w.
func loadConfig(cmd *cobra.Command, w io.Writer) (*config.Config, *logger.Logger, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{File: file, Flags: cmd.Flags()})
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logger()
	logCfg.Output = w
	return cfg, logger.NewLogger(logCfg), nil
}

func newCorpus(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *document.Corpus {
	return document.NewCorpus(document.CorpusOptions{
		Root:       cfg.Corpus.Root,
		Candidates: cfg.Corpus.Candidates,
		Logger:     log.GetZerolog(),
		Observer:   &corpusObserver{log: log.CorpusLogger(), metrics: m},
	})
}

// corpusObserver reports corpus loads to the log and, when serving, to
// Prometheus.
type corpusObserver struct {
	log     *logger.Logger
	metrics *metrics.Metrics
}

func (o *corpusObserver) ObserveCorpusLoad(path string, stats document.Stats, d time.Duration, err error) {
	o.log.LogCorpusLoad(path, stats.Documents, stats.Fragments, stats.Malformed+stats.Keyless, d, err)
	if o.metrics != nil {
		o.metrics.ObserveCorpusLoad(path, stats, d, err)
	}
}
