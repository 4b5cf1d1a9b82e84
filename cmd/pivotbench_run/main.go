// pivotbench_run measures the pivot API over a range of dataset sizes and
// writes a Markdown report plus the raw results.
//
// For every size it regenerates and reloads the dataset, times the pivot
// and endpoint suites over several cold-cache iterations and probes cache
// effectiveness. This program has no knowledge of the internals of the API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pivotapi/pivotbench/cache"
	"github.com/pivotapi/pivotbench/campaign"
	"github.com/pivotapi/pivotbench/command"
	"github.com/pivotapi/pivotbench/config"
	"github.com/pivotapi/pivotbench/load"
	"github.com/pivotapi/pivotbench/probe"
	"github.com/pivotapi/pivotbench/report"
	"github.com/pivotapi/pivotbench/result"
	"github.com/pivotapi/pivotbench/stats"
)

// Program option vars:
var (
	cfg        = config.Default()
	configFile string
	memProfile string
	debug      bool
)

// Parse args:
func init() {
	flag.StringVar(&configFile, "config", "", "YAML campaign configuration. Flags given on the command line override it.")
	flag.StringVar(&cfg.APIHost, "api-host", cfg.APIHost, "Pivot API host address and port")
	flag.DurationVar(&cfg.APIReadTimeout, "api-read-timeout", cfg.APIReadTimeout, "Pivot API and ClickHouse request timeout")
	flag.UintVar(&cfg.HealthRetries, "health-retries", cfg.HealthRetries, "Health check attempts before giving up")
	flag.Var(config.IntList{Values: &cfg.Sizes}, "sizes", "Comma separated dataset sizes, in rows")
	flag.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "Measurement iterations per dataset size")
	flag.StringVar(&cfg.TradeDate, "trade-date", cfg.TradeDate, "Trade date generated and queried")
	flag.Var(config.StringList{Values: &cfg.Dimensions}, "dimensions", "Comma separated pivot dimensions in sweep order")
	flag.Var(config.StringList{Values: &cfg.Metrics}, "metrics", "Comma separated pivot metrics")
	flag.IntVar(&cfg.CacheTestDimensions, "cache-test-dimensions", cfg.CacheTestDimensions, "Dimensions of the cache effectiveness query")
	flag.BoolVar(&cfg.SkipProvision, "skip-provision", cfg.SkipProvision, "Benchmark the data already loaded instead of generating each size")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Data generator seed")
	flag.IntVar(&cfg.PortfolioManagers, "portfolio-managers", cfg.PortfolioManagers, "Portfolio managers generated")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory the generated CSV files are written to")
	flag.StringVar(&cfg.GeneratorCommand, "generator-command", cfg.GeneratorCommand, "Data generator command prefix")
	flag.StringVar(&cfg.Database, "database", cfg.Database, "ClickHouse database holding the pivot tables")
	flag.StringVar(&cfg.Loader, "loader", cfg.Loader, "Table loader: http (ClickHouse HTTP interface) or exec (clickhouse-client)")
	flag.StringVar(&cfg.ClickHouseHTTP, "clickhouse-http", cfg.ClickHouseHTTP, "ClickHouse HTTP interface address and port")
	flag.StringVar(&cfg.ClickHouseUser, "clickhouse-user", cfg.ClickHouseUser, "ClickHouse user")
	flag.StringVar(&cfg.ClickHousePassword, "clickhouse-password", cfg.ClickHousePassword, "ClickHouse password")
	flag.StringVar(&cfg.ClickHouseClientCommand, "clickhouse-client-command", cfg.ClickHouseClientCommand, "clickhouse-client command prefix used by the exec loader")
	flag.StringVar(&cfg.ClickHousePgDSN, "clickhouse-pg-dsn", cfg.ClickHousePgDSN, "ClickHouse PostgreSQL interface DSN used to count loaded rows")
	flag.StringVar(&cfg.Flusher, "flusher", cfg.Flusher, "Cache flusher: redis or exec")
	flag.StringVar(&cfg.RedisHost, "redis-host", cfg.RedisHost, "Redis host address and port")
	flag.StringVar(&cfg.FlushCommand, "flush-command", cfg.FlushCommand, "Cache flush command used by the exec flusher")
	flag.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "Markdown report output path")
	flag.StringVar(&cfg.ResultsPath, "results", cfg.ResultsPath, "Raw JSON results output path")
	flag.BoolVar(&cfg.Progress, "progress", cfg.Progress, "Show a progress bar per dataset size")
	flag.BoolVar(&cfg.PrintResponses, "print-responses", cfg.PrintResponses, "Print every probe result")
	flag.StringVar(&memProfile, "memprofile", "", "Write a memory profile to this file.")
	flag.BoolVar(&debug, "debug", false, "Whether to print debug messages.")
	flag.Parse()

	if configFile != "" {
		if err := config.Load(configFile, &cfg); err != nil {
			log.Fatal(err)
		}
		// command line flags take precedence over the file
		flag.Parse()
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%s", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	log.Info("Pivot API Benchmark Suite")

	exec := command.Local{}
	flusher, err := cache.FromConfig(cfg, exec)
	if err != nil {
		log.Fatal(err)
	}
	if c, ok := flusher.(*cache.RedisFlusher); ok {
		defer c.Close()
	}
	controller := cache.NewController(flusher)

	var provisioner campaign.Provisioner
	if cfg.SkipProvision {
		cfg.Sizes = []int{existingDataSize(ctx)}
		log.Infof("Benchmarking the data already loaded (%s rows)", humanize.Comma(int64(cfg.Sizes[0])))
	} else {
		p, err := load.FromConfig(cfg, exec)
		if err != nil {
			log.Fatal(err)
		}
		if err := p.Init(); err != nil {
			log.Fatal(err)
		}
		defer p.Close()
		provisioner = p
	}

	api := probe.New(cfg.APIHost, cfg.APIReadTimeout)
	runner := campaign.NewBenchmarkRunner(cfg, api, api, provisioner, controller)
	outcome, err := runner.Run(ctx)
	if err != nil {
		if errors.Cause(err) == campaign.ErrAPIUnavailable {
			log.Fatalf("Error: %s", err)
		}
		log.Fatalf("Benchmark interrupted: %s", err)
	}
	if outcome.Err != nil {
		log.Errorf("Some dataset sizes did not complete:\n%s", outcome.Err)
	}
	if n := controller.Failures(); n > 0 {
		log.Warnf("%d of %d cache flushes failed, some measurements may be warm", n, controller.Flushes())
	}

	summaries := stats.Aggregate(outcome.Measurements)
	doc := report.Build(report.Input{
		Sizes:         cfg.Sizes,
		Iterations:    cfg.Iterations,
		MaxDimensions: len(cfg.Dimensions),
		Summaries:     summaries,
		CacheTests:    outcome.CacheTests,
	}, report.Options{Now: time.Now()})
	if err := report.WriteFile(cfg.ReportPath, doc); err != nil {
		log.Fatal(err)
	}
	log.Infof("Report saved to %s", cfg.ReportPath)

	archive := result.NewArchive(cfg.Sizes, cfg.Iterations, started)
	archive.FinishedAt = time.Now()
	archive.Benchmarks = append(archive.Benchmarks, outcome.Measurements...)
	archive.CacheTests = append(archive.CacheTests, outcome.CacheTests...)
	if err := result.WriteArchive(cfg.ResultsPath, archive); err != nil {
		log.Fatal(err)
	}
	log.Infof("Raw results saved to %s (%s measurements)", cfg.ResultsPath, humanize.Comma(int64(len(outcome.Measurements))))

	// (Optional) create a memory profile:
	if len(memProfile) > 0 {
		f, err := os.Create(memProfile)
		if err != nil {
			log.Fatal(err)
		}
		_ = pprof.WriteHeapProfile(f)
		_ = f.Close()
	}
	log.Infof("Performance %s", doc.PerformanceVerdict)
	log.Infof("Benchmark complete in %s", time.Since(started).Round(time.Second))
}

// existingDataSize labels a run over already loaded data with the fact
// table's row count, falling back to the first configured size.
func existingDataSize(ctx context.Context) int {
	if cfg.ClickHousePgDSN == "" {
		return cfg.Sizes[0]
	}
	counter, err := load.OpenSQLRowCounter(cfg.ClickHousePgDSN)
	if err != nil {
		log.Warnf("Cannot count loaded rows: %s", err)
		return cfg.Sizes[0]
	}
	defer counter.Close()
	n, err := counter.Count(ctx, load.DefaultTables(cfg.Database).Trades)
	if err != nil || n == 0 {
		log.Warnf("Cannot count loaded rows, labelling the run %d: %v", cfg.Sizes[0], err)
		return cfg.Sizes[0]
	}
	return int(n)
}
