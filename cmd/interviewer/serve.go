package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"interviewer/pkg/httpapi"
	"interviewer/pkg/interview"
	"interviewer/pkg/metrics"
	oraclemetrics "interviewer/pkg/oracle/middleware/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interview HTTP service",
	Long: `Starts the session API server. Interviews run over POST /sessions and
POST /sessions/{id}/answer; Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		a, err := newApp(configPath, oraclemetrics.NewPrometheusRecorder())
		if err != nil {
			return err
		}
		defer a.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.HTTP.Addr = addr
		}

		serverOpts := []httpapi.ServerOption{
			httpapi.WithCatalog(a.topics),
			httpapi.WithDefaults(interview.Options{
				MaxIterationsPerTopic: a.cfg.Interview.MaxIterationsPerTopic,
				MaxJudgeRetries:       a.cfg.Interview.MaxJudgeRetries,
			}),
		}
		if a.cfg.Metrics.PrometheusURL != "" {
			usage, err := metrics.NewQueryService(a.cfg.Metrics.PrometheusURL)
			if err != nil {
				return fmt.Errorf("metrics query service: %w", err)
			}
			serverOpts = append(serverOpts, httpapi.WithUsage(usage))
		}

		api := httpapi.NewServer(a.engine, serverOpts...)
		srv := &http.Server{
			Addr:              a.cfg.HTTP.Addr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("Interview API listening on %s (store: %s, model: %s)",
				srv.Addr, a.cfg.Store.Backend, a.cfg.Oracle.Model)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			a.logger.Info("Shutdown started (signal: %v)", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Warn("Graceful shutdown incomplete: %v", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("close server: %w", err)
				}
			}
			a.logger.Info("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
}
