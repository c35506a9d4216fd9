package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
	"github.com/mit-kavli-institute/pdoflow-go/profiling"
	"github.com/mit-kavli-institute/pdoflow-go/registry"
	pdoflowsql "github.com/mit-kavli-institute/pdoflow-go/sql"
)

func buildPoolCommand() *cobra.Command {
	var maxWorkers int
	var upkeepRate time.Duration
	var batchSize int
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Start a worker pool and run until signaled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPool(cmd.Context(), maxWorkers, upkeepRate, batchSize, metricsAddr)
		},
	}

	cmd.Flags().IntVar(&maxWorkers, "max-workers", 4, "number of worker slots")
	cmd.Flags().DurationVar(&upkeepRate, "upkeep-rate", time.Second, "how often to reap and respawn dead workers")
	cmd.Flags().IntVar(&batchSize, "batchsize", 10, "job records claimed per worker cycle")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics at this address (e.g. :9090)")

	return cmd
}

// runPool starts the worker pool and, if metricsAddr is non-empty, a
// /metrics HTTP server alongside it. The metrics server and the signal
// wait run under one errgroup: a metrics server failure or
// SIGINT/SIGTERM ends both, after which the pool is stopped.
func runPool(ctx context.Context, maxWorkers int, upkeepRate time.Duration, batchSize int, metricsAddr string) error {
	log := logger()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	dispatcher := pdoflowsql.NewDispatcher(db)
	reg := registry.New()
	registerer := prometheus.NewRegistry()
	metrics := pdoflow.NewMetrics(registerer)
	profiler := profiling.NewProfiler("")

	poolConfig := pdoflow.PoolConfig{
		MaxWorkers: maxWorkers,
		UpkeepRate: upkeepRate,
		Metrics:    metrics,
		WorkerFactory: func(slot int) (*pdoflow.Worker, error) {
			workerConfig := pdoflow.DefaultWorkerConfig()
			workerConfig.BatchSize = batchSize
			workerConfig.Metrics = metrics
			return pdoflow.NewWorker(dispatcher, reg, profiler, workerConfig, log), nil
		},
	}

	p, err := pdoflow.NewPool(poolConfig, log)
	if err != nil {
		return err
	}

	if err := p.Start(ctx); err != nil {
		return err
	}

	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()
	group, groupCtx := errgroup.WithContext(waitCtx)

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:    metricsAddr,
			Handler: promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}),
		}
		group.Go(func() error {
			<-groupCtx.Done()
			return srv.Close()
		})
		group.Go(func() error {
			log.Info("serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		defer cancelWait()
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-groupCtx.Done():
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("pool runtime error", "err", err)
	}

	log.Info("shutting down pool")
	return p.Stop(30 * time.Second)
}
