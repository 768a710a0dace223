package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"carteira/internal/backend"
	"carteira/internal/config"
	apphttp "carteira/internal/http"
	"carteira/internal/log"
	"carteira/internal/recurring"
	"carteira/internal/session"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := backend.CreateStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize record store", log.FieldError, err.Error())
		os.Exit(1)
	}

	manager := session.NewManager(result.Store, session.Config{
		WeekStart:    cfg.WeekStartDay,
		FeedPageSize: cfg.FeedPageSize,
	}, logger)

	var processor *recurring.Processor
	if store, ok := result.Store.(recurring.Store); ok {
		processor = recurring.NewProcessor(store, logger, recurring.ProcessorConfig{
			Interval: cfg.RecurringInterval,
		})
		if err := processor.Start(ctx); err != nil {
			logger.Error("failed to start recurring processor", log.FieldError, err.Error())
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:             ":" + cfg.Port,
		SummaryCacheSize: cfg.SummaryCacheSize,
		SummaryCacheTTL:  cfg.SummaryCacheTTL,
	}, manager, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening",
			log.FieldOperation, log.OpStartup,
			"addr", srv.Addr,
			log.FieldBackend, cfg.DataBackend,
			log.FieldPageSize, cfg.FeedPageSize)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if processor != nil {
			if err := processor.Stop(shutdownCtx); err != nil {
				logger.Warn("recurring processor shutdown", log.FieldError, err.Error())
			}
		}
		manager.Logout()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if result.Cleanup != nil {
		if cerr := result.Cleanup(); cerr != nil {
			logger.Warn("store cleanup", log.FieldError, cerr.Error())
		}
	}
	if err != nil {
		logger.Error("server exited with error", log.FieldError, err.Error())
		os.Exit(1)
	}
}
