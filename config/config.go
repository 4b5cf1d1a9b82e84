// Package config holds the campaign configuration. Every value the original
// benchmark scripts kept as process-wide constants lives here and is passed
// explicitly to the runner, so several campaigns can run side by side.
package config

import (
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	LoaderHTTP = "http"
	LoaderExec = "exec"

	FlusherRedis = "redis"
	FlusherExec  = "exec"
)

// Campaign configures one benchmark campaign.
type Campaign struct {
	// API under test
	APIHost        string        `yaml:"api_host"`
	APIReadTimeout time.Duration `yaml:"api_read_timeout"`
	HealthRetries  uint          `yaml:"health_retries"`

	// Measurement matrix
	Sizes               []int    `yaml:"sizes"`
	Iterations          int      `yaml:"iterations"`
	TradeDate           string   `yaml:"trade_date"`
	Dimensions          []string `yaml:"dimensions"`
	Metrics             []string `yaml:"metrics"`
	CacheTestDimensions int      `yaml:"cache_test_dimensions"`

	// Dataset provisioning
	SkipProvision           bool   `yaml:"skip_provision"`
	Seed                    int64  `yaml:"seed"`
	PortfolioManagers       int    `yaml:"portfolio_managers"`
	DataDir                 string `yaml:"data_dir"`
	GeneratorCommand        string `yaml:"generator_command"`
	Database                string `yaml:"database"`
	Loader                  string `yaml:"loader"`
	ClickHouseHTTP          string `yaml:"clickhouse_http"`
	ClickHouseUser          string `yaml:"clickhouse_user"`
	ClickHousePassword      string `yaml:"clickhouse_password"`
	ClickHouseClientCommand string `yaml:"clickhouse_client_command"`
	ClickHousePgDSN         string `yaml:"clickhouse_pg_dsn"`

	// Cache flushing
	Flusher      string `yaml:"flusher"`
	RedisHost    string `yaml:"redis_host"`
	FlushCommand string `yaml:"flush_command"`

	// Output
	ReportPath     string `yaml:"report_path"`
	ResultsPath    string `yaml:"results_path"`
	Progress       bool   `yaml:"progress"`
	PrintResponses bool   `yaml:"print_responses"`
}

// Default returns the configuration of the original benchmark suite.
func Default() Campaign {
	return Campaign{
		APIHost:        "127.0.0.1:8080",
		APIReadTimeout: 5 * time.Minute,
		HealthRetries:  3,

		Sizes:               []int{1000, 10000, 100000, 500000, 1000000},
		Iterations:          3,
		TradeDate:           "2024-01-15",
		Dimensions:          []string{"asset_class", "region", "desk", "book", "symbol"},
		Metrics:             []string{"notional", "pnl"},
		CacheTestDimensions: 2,

		Seed:                    42,
		PortfolioManagers:       50,
		DataDir:                 "data/benchmark",
		GeneratorCommand:        "cargo run -p pivot-data-gen --release --",
		Database:                "pivot",
		Loader:                  LoaderHTTP,
		ClickHouseHTTP:          "127.0.0.1:8123",
		ClickHouseClientCommand: "docker exec -i pivot-clickhouse clickhouse-client",

		Flusher:      FlusherRedis,
		RedisHost:    "127.0.0.1:6379",
		FlushCommand: "docker exec pivot-redis redis-cli FLUSHALL",

		ReportPath:  "docs/benchmark-report.md",
		ResultsPath: "data/benchmark/results.json",
		Progress:    true,
	}
}

// Load overlays the YAML file at path onto c. Keys absent from the file keep
// their current values.
func Load(path string, c *Campaign) error {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.UnmarshalStrict(buf, c); err != nil {
		return errors.Wrapf(err, "parsing config %s", path)
	}
	return nil
}

// Validate reports every problem with c.
func (c Campaign) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...interface{}) {
		result = multierror.Append(result, errors.Errorf(format, args...))
	}

	if c.APIHost == "" {
		add("api host must be set")
	}
	if len(c.Sizes) == 0 {
		add("at least one dataset size is required")
	}
	seen := map[int]bool{}
	for _, size := range c.Sizes {
		if size <= 0 {
			add("dataset size must be positive, got %d", size)
		}
		if seen[size] {
			add("dataset size %d listed twice", size)
		}
		seen[size] = true
	}
	if c.Iterations < 1 {
		add("iterations must be at least 1, got %d", c.Iterations)
	}
	if _, err := time.Parse("2006-01-02", c.TradeDate); err != nil {
		add("trade date %q is not YYYY-MM-DD", c.TradeDate)
	}
	if len(c.Dimensions) == 0 {
		add("at least one pivot dimension is required")
	}
	if len(c.Metrics) == 0 {
		add("at least one pivot metric is required")
	}
	if c.CacheTestDimensions < 1 || c.CacheTestDimensions > len(c.Dimensions) {
		add("cache test dimensions must be between 1 and %d, got %d", len(c.Dimensions), c.CacheTestDimensions)
	}
	if c.Loader != LoaderHTTP && c.Loader != LoaderExec {
		add("unknown loader %q (choices: %s, %s)", c.Loader, LoaderHTTP, LoaderExec)
	}
	if c.Flusher != FlusherRedis && c.Flusher != FlusherExec {
		add("unknown flusher %q (choices: %s, %s)", c.Flusher, FlusherRedis, FlusherExec)
	}
	return result.ErrorOrNil()
}

// LargestSize returns the largest configured dataset size.
func (c Campaign) LargestSize() int {
	largest := 0
	for _, size := range c.Sizes {
		if size > largest {
			largest = size
		}
	}
	return largest
}
