// pivotbench_load_data generates a dataset of the requested size and loads it
// into ClickHouse, replacing the current contents of the pivot tables.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/pivotapi/pivotbench/command"
	"github.com/pivotapi/pivotbench/config"
	"github.com/pivotapi/pivotbench/load"
)

// Program option vars:
var (
	cfg        = config.Default()
	configFile string
	size       int
	debug      bool
)

// Parse args:
func init() {
	flag.StringVar(&configFile, "config", "", "YAML campaign configuration. Flags given on the command line override it.")
	flag.IntVar(&size, "rows", 1000000, "Number of trade rows to generate")
	flag.StringVar(&cfg.TradeDate, "trade-date", cfg.TradeDate, "Trade date generated")
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
	flag.DurationVar(&cfg.APIReadTimeout, "timeout", cfg.APIReadTimeout, "ClickHouse request timeout")
	flag.BoolVar(&debug, "debug", false, "Whether to print debug messages.")
	flag.Parse()

	if configFile != "" {
		if err := config.Load(configFile, &cfg); err != nil {
			log.Fatal(err)
		}
		flag.Parse()
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	cfg.Sizes = []int{size}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%s", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := load.FromConfig(cfg, command.Local{})
	if err != nil {
		log.Fatal(err)
	}
	if err := p.Init(); err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	start := time.Now()
	if err := p.Provision(ctx, size); err != nil {
		log.Fatalf("Loading %s rows failed: %s", humanize.Comma(int64(size)), err)
	}
	log.Infof("Loaded %s rows in %s", humanize.Comma(int64(size)), time.Since(start).Round(time.Millisecond))
}
