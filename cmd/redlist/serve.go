package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/nainya/redlist/internal/config"
	"github.com/nainya/redlist/internal/logger"
	"github.com/nainya/redlist/internal/metrics"
	"github.com/nainya/redlist/internal/server"
	"github.com/nainya/redlist/internal/tracing"
	"github.com/nainya/redlist/pkg/document"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, gRPC and observability servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd, os.Stdout)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.LogServerStart(cfg.HTTP.Addr, cfg.GRPC.Addr, cfg.Corpus.Root)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Version:     version,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer shutdown failed").Err(err).Send()
		}
	}()
	if tp.Enabled() {
		log.Info("Tracing enabled").Str("exporter", cfg.Tracing.Exporter).Send()
	}

	corpus := newCorpus(cfg, log, m)
	srv, err := server.New(server.Options{
		Corpus:       corpus,
		Metrics:      m,
		Logger:       log,
		ChatUpstream: cfg.Chat.Upstream,
		ChatTimeout:  cfg.Chat.Timeout,
		ChatRate:     cfg.Chat.Rate,
		ChatBurst:    cfg.Chat.Burst,
		AdminReload:  cfg.Admin.Reload,
	})
	if err != nil {
		return err
	}

	// A failed first load is retried lazily by the first request
	if n, err := srv.Warm(ctx); err != nil {
		log.Warn("Initial corpus load failed").Err(err).Send()
	} else {
		log.LogServerReady(n)
	}

	var scheduler *document.ReloadScheduler
	if cfg.Corpus.ReloadSchedule != "" {
		if scheduler, err = document.NewReloadScheduler(corpus, cfg.Corpus.ReloadSchedule); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}
	grpcServer, healthServer := srv.NewGRPCServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(16*1024*1024),
	)

	obs := server.NewObservabilityServer(cfg.Observability.Addr, reg, corpus.Loaded, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP API listening").Str("addr", cfg.HTTP.Addr).Send()
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("gRPC API listening").Str("addr", cfg.GRPC.Addr).Send()
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil
	})

	g.Go(obs.Start)

	if cfg.Corpus.Watch {
		watcher, err := document.NewWatcher(corpus, document.DefaultDebounce)
		if err != nil {
			log.Warn("Corpus watching disabled").Err(err).Send()
		} else {
			defer watcher.Close()
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}

	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.LogServerShutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		healthServer.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := obs.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
		}

		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
