package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-taskbus/api"
	"go-taskbus/config"
	"go-taskbus/dispatcher"
	"go-taskbus/handlers"
	"go-taskbus/logger"
	"go-taskbus/producer"
	"go-taskbus/queue"
	"go-taskbus/store"
	"go-taskbus/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.New(cfg.LogLevel, os.Stdout)

	if cfg.IsPlaceholder() {
		lg.Warn("queue connection string is still the placeholder; set QUEUE_CONNECTION_STRING", map[string]any{
			"connection_string": cfg.ConnectionString,
		})
	}

	broker, err := queue.NewBroker(cfg.ConnectionString, queue.Options{
		MaxBatchBytes:    cfg.MaxBatchBytes,
		MaxDeliveryCount: cfg.MaxDeliveryCount,
	})
	if err != nil {
		lg.Error("failed to initialize broker", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := store.Nop()
	var executions api.ExecutionLister
	if cfg.DatabaseURL != "" {
		ledger, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			lg.Error("failed to initialize execution ledger", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer ledger.Close()

		if err := ledger.EnsureSchema(ctx); err != nil {
			lg.Error("failed to prepare execution ledger", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		recorder = ledger
		executions = ledger
		lg.Info("execution ledger enabled")
	}

	registry := handlers.NewDefaultRegistry(lg)
	disp := dispatcher.New(registry, handlers.NewTextHandler(lg), lg)
	receiver := broker.NewReceiver(cfg.QueueName)

	pool := worker.NewPool(receiver, disp, recorder, worker.Config{
		WorkerCount:    cfg.WorkerCount,
		ReceiveWait:    cfg.ReceiveWait,
		HandlerTimeout: cfg.HandlerTimeout,
	}, lg)
	pool.Start(ctx)

	server := api.New(cfg.ServerAddr, api.Dependencies{
		Publisher:  producer.New(broker, cfg.QueueName, nil, lg),
		Queue:      receiver,
		Executions: executions,
		Registry:   registry,
	}, lg)

	go func() {
		if err := server.ListenAndServe(); err != nil {
			lg.Error("HTTP server error", map[string]any{"error": err.Error()})
			cancel()
		}
	}()

	lg.Info("consumer host started", map[string]any{
		"queue":        cfg.QueueName,
		"dead_letter":  cfg.DeadLetterQueue(),
		"worker_count": pool.WorkerCount(),
		"task_types":   registry.Types(),
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		lg.Info("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("HTTP server shutdown error", map[string]any{"error": err.Error()})
	}

	pool.Wait()
	lg.Info("all workers stopped")
}
