package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qraffle/internal/config"
	"qraffle/internal/logger"
	"qraffle/internal/metrics"
	"qraffle/internal/raffle"
	"qraffle/internal/settler"
	"qraffle/internal/storage"
)

func main() {
	var configPath string
	flagSet := pflag.NewFlagSet("settler", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to the TOML configuration file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Logger)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-waitForInterrupt()
		logger.Info("interrupt received, stopping")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("settler stopped on error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	programID, err := cfg.ProgramID()
	if err != nil {
		return err
	}
	admin, err := cfg.AdminKey()
	if err != nil {
		return err
	}
	adminProceeds, err := cfg.AdminProceeds()
	if err != nil {
		return err
	}

	sqliteStorage, err := storage.NewSqliteStorage(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := sqliteStorage.Close(); err != nil {
			logger.Warn("closing database", zap.Error(err))
		}
	}()

	raffleMetrics := metrics.Raffle()
	program := raffle.NewProgram(programID, sqliteStorage)
	program.SetEmitter(storage.NewJournal(sqliteStorage))
	program.SetMetrics(raffleMetrics)

	settlerInstance := settler.NewSettler(ctx, sqliteStorage, program, admin, adminProceeds)
	settlerInstance.SetMetrics(raffleMetrics)
	if err := settlerInstance.VerifyProgramAccount(); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer settlerInstance.Finalize()
		ticker := time.NewTicker(cfg.Settler.PollInterval)
		defer ticker.Stop()
		for {
			if _, err := settlerInstance.Run(); err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				// Storage failures are retried on the next tick.
				logger.Warn("settlement pass failed", zap.Error(err))
			}
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case <-ticker.C:
			}
		}
	})

	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			logger.Info("serving metrics", zap.String("address", cfg.Metrics.Address))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return group.Wait()
}

func waitForInterrupt() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh
}
