package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/grounded-assistant/internal/bootstrap"
	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/observability/logging"
	"github.com/kirillkom/grounded-assistant/internal/observability/metrics"
)

const (
	serviceName           = "worker"
	documentProcessBudget = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Providers: workerMetrics.Providers()})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSDocumentsSubject)
		return app.Queue.SubscribeDocumentIngested(groupCtx, func(handlerCtx context.Context, documentID string) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, documentProcessBudget)
			defer cancel()

			workerMetrics.StartDocument()
			started := time.Now()
			err := app.ProcessUC.ProcessByID(processCtx, documentID)
			workerMetrics.FinishDocument(serviceName, time.Since(started), err)
			if err != nil {
				logger.Error("document_process_failed", "document_id", documentID, "error", err)
			}
			return err
		})
	})
	group.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSTurnsSubject)
		return app.Queue.SubscribeTurnCompleted(groupCtx, func(_ context.Context, turn domain.Turn) error {
			if !turn.CreatedAt.IsZero() {
				workerMetrics.ObserveQueueLag(serviceName, "turn_completed", time.Since(turn.CreatedAt))
			}
			workerMetrics.RecordTurnCompleted(serviceName, turn)
			logger.Info("turn_completed",
				"turn_id", turn.ID,
				"session_id", turn.SessionID,
				"domain", turn.Answer.Domain,
				"search_method", turn.Answer.SearchMethod,
				"replaces_turn_id", turn.ReplacesTurnID,
			)
			return nil
		})
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_stopped", "error", err)
		os.Exit(1)
	}
}
