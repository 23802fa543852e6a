package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/downfa11-org/stream-poster/pkg/bench"
	"github.com/downfa11-org/stream-poster/pkg/config"
	"github.com/downfa11-org/stream-poster/pkg/coordinator"
	"github.com/downfa11-org/stream-poster/pkg/metrics"
	"github.com/downfa11-org/stream-poster/pkg/provisioner"
	"github.com/downfa11-org/stream-poster/pkg/stream"
	"github.com/downfa11-org/stream-poster/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	util.SetLevel(cfg.LogLevel)

	svc, err := newService(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	prov := provisioner.New(svc, provisioner.Config{
		PollInterval: cfg.PollInterval(),
		MaxAttempts:  cfg.MaxCreateAttempts,
		Out:          stdout,
	})

	switch cfg.Mode() {
	case config.ModeDelete:
		err = prov.Delete(ctx, cfg.StreamName)
	case config.ModeDescribe:
		_, err = prov.Describe(ctx, cfg.StreamName)
	default:
		err = runPosters(ctx, cfg, svc, prov, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newService(ctx context.Context, cfg *config.PosterConfig) (stream.Service, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return stream.NewMemoryService(), nil
	default:
		return stream.NewKinesisService(ctx, stream.KinesisOptions{
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	}
}

func runPosters(ctx context.Context, cfg *config.PosterConfig, svc stream.Service, prov *provisioner.Provisioner, stdout io.Writer) error {
	if cfg.MetricsPort > 0 {
		srv := metrics.StartMetricsServer(cfg.MetricsPort)
		defer srv.Close()
	}

	fmt.Fprintf(stdout, "🚀 posting to stream '%s' with %d poster(s) for %ds\n", cfg.StreamName, cfg.PosterCount, cfg.PosterTime)

	cd := coordinator.NewCoordinator(svc, prov, coordinator.Config{
		StreamName:   cfg.StreamName,
		ShardCount:   cfg.ShardCount,
		PartitionKey: cfg.PartitionKey,
		PosterCount:  cfg.PosterCount,
		PosterTime:   cfg.PosterDuration(),
		Quiet:        cfg.Quiet,
		Codec:        cfg.Codec(),
	}, stdout)

	summary, err := cd.Run(ctx)
	if err != nil {
		return err
	}

	bench.PrintSummaryTo(stdout, summary)
	if cfg.ResultFile != "" {
		if err := bench.SaveResult(cfg.ResultFile, summary); err != nil {
			return err
		}
	}
	return nil
}
