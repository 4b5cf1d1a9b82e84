// Package campaign sequences a benchmark campaign against the pivot API:
// for every dataset size it provisions data, measures the pivot and endpoint
// suites over several cold-cache iterations and probes cache effectiveness.
package campaign

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/avast/retry-go"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/pivotapi/pivotbench/config"
	"github.com/pivotapi/pivotbench/probe"
	"github.com/pivotapi/pivotbench/result"
	"github.com/pivotapi/pivotbench/stats"
)

const (
	PivotPath        = "/api/v1/pivot"
	ExposurePath     = "/api/v1/exposure"
	PnlPath          = "/api/v1/pnl"
	InstrumentsPath  = "/api/v1/instruments"
	ConstituentsPath = "/api/v1/constituents"
	HealthPath       = "/health"

	defaultRetryDelay = 2 * time.Second
)

// ErrAPIUnavailable is returned by Run when the API never answered the
// health check. No measurements exist in that case.
var ErrAPIUnavailable = errors.New("pivot API is not responding")

// Prober issues one timed request.
type Prober interface {
	Do(ctx context.Context, method, path string, payload interface{}) (probe.Result, error)
}

// HealthChecker reports the API health.
type HealthChecker interface {
	Health(ctx context.Context) (probe.Health, error)
}

// Provisioner replaces the dataset with one of the given size.
type Provisioner interface {
	Provision(ctx context.Context, size int) error
}

// Flusher clears the API's result cache. It never fails.
type Flusher interface {
	Flush(ctx context.Context)
}

// PivotFilters restricts a pivot query.
type PivotFilters struct {
	TradeDate string `json:"trade_date"`
}

// PivotRequest is the body of POST /api/v1/pivot.
type PivotRequest struct {
	Dimensions  []string     `json:"dimensions"`
	Metrics     []string     `json:"metrics"`
	Filters     PivotFilters `json:"filters"`
	CacheBypass bool         `json:"cache_bypass,omitempty"`
}

// Outcome holds everything a campaign measured.
type Outcome struct {
	Measurements []result.Measurement
	CacheTests   []result.CacheTest
	// Completed lists the sizes measured without a probe failure.
	Completed []int
	// Skipped lists the sizes whose provisioning failed.
	Skipped []int
	// Err accumulates the probe failures that aborted a size.
	Err error
}

// BenchmarkRunner runs one campaign. It is not safe for concurrent use.
type BenchmarkRunner struct {
	cfg         config.Campaign
	prober      Prober
	health      HealthChecker
	provisioner Provisioner
	flusher     Flusher

	out        io.Writer
	retryDelay time.Duration
	progress   bool
}

// NewBenchmarkRunner creates a runner. provisioner may be nil when
// cfg.SkipProvision is set.
func NewBenchmarkRunner(cfg config.Campaign, prober Prober, health HealthChecker, provisioner Provisioner, flusher Flusher) *BenchmarkRunner {
	return &BenchmarkRunner{
		cfg:         cfg,
		prober:      prober,
		health:      health,
		provisioner: provisioner,
		flusher:     flusher,
		out:         os.Stdout,
		retryDelay:  defaultRetryDelay,
		progress:    cfg.Progress,
	}
}

// SetOutput redirects the console summaries and progress bars.
func (b *BenchmarkRunner) SetOutput(w io.Writer) {
	b.out = w
}

// SetRetryDelay changes the pause between health check attempts.
func (b *BenchmarkRunner) SetRetryDelay(d time.Duration) {
	b.retryDelay = d
}

// Run executes the campaign. The returned error is ErrAPIUnavailable or a
// context error; per-size failures are reported in Outcome.Err.
func (b *BenchmarkRunner) Run(ctx context.Context) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.checkHealth(ctx); err != nil {
		return nil, err
	}

	c := newCollector(b.cfg.PrintResponses, b.out)
	outcome := &Outcome{}
	var failures *multierror.Error

	for _, size := range b.cfg.Sizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger := log.WithField("size", humanize.Comma(int64(size)))
		logger.Infof("Benchmarking %s rows", humanize.Comma(int64(size)))

		if !b.cfg.SkipProvision {
			if err := b.provisioner.Provision(ctx, size); err != nil {
				logger.Errorf("Provisioning failed, skipping size: %s", err)
				outcome.Skipped = append(outcome.Skipped, size)
				continue
			}
		}

		wallStart := time.Now()
		if err := b.measureSize(ctx, c, size); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Errorf("Aborting size after probe failure: %s", err)
			failures = multierror.Append(failures, errors.Wrapf(err, "size %d", size))
		} else {
			outcome.Completed = append(outcome.Completed, size)
		}
		logger.Infof("Took: %8.3f sec", time.Since(wallStart).Seconds())

		b.printQuickSummary(size, stats.Aggregate(result.ForSize(c.measurements, size)))
	}

	outcome.Measurements = c.measurements
	outcome.CacheTests = c.cacheTests
	outcome.Err = failures.ErrorOrNil()

	for _, s := range stats.Divergent(stats.Aggregate(outcome.Measurements)) {
		log.WithField("size", s.DataSize).Warnf("%s returned a different number of rows across iterations, reporting the largest (%d)", s.TestName, s.RowsReturned)
	}
	return outcome, nil
}

func (b *BenchmarkRunner) checkHealth(ctx context.Context) error {
	attempts := b.cfg.HealthRetries
	if attempts == 0 {
		attempts = 1
	}
	var h probe.Health
	err := retry.Do(
		func() error {
			var err error
			h, err = b.health.Health(ctx)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(b.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("Health check attempt %d/%d failed: %s", n+1, attempts, err)
		}),
	)
	if err != nil {
		log.Errorf("API not responding: %s", err)
		return errors.Wrapf(ErrAPIUnavailable, "%s", err)
	}
	log.Infof("API Status: %s", h.Status)
	log.Infof("ClickHouse: %s", describeService(h.ClickHouse))
	log.Infof("Redis: %s", describeService(h.Redis))
	return nil
}

func describeService(s probe.ServiceHealth) string {
	switch {
	case s.Error != "":
		return fmt.Sprintf("%s (%s)", s.Status, s.Error)
	case s.LatencyMs != nil:
		return fmt.Sprintf("%s (%gms)", s.Status, *s.LatencyMs)
	default:
		return s.Status
	}
}

// measureSize runs the iterations and the cache test for one size. The first
// probe failure ends the size; records appended before it are kept.
func (b *BenchmarkRunner) measureSize(ctx context.Context, c *collector, size int) error {
	bar := newProgress(b.progress, b.out, size, b.stepsPerSize())
	defer bar.finish()

	b.flusher.Flush(ctx)
	for iteration := 1; iteration <= b.cfg.Iterations; iteration++ {
		log.WithField("size", size).Infof("Iteration %d/%d", iteration, b.cfg.Iterations)
		// iterations measure the cold path, so each starts from an empty cache
		b.flusher.Flush(ctx)

		for dims := 1; dims <= len(b.cfg.Dimensions); dims++ {
			res, err := b.prober.Do(ctx, fasthttp.MethodPost, PivotPath, b.pivotRequest(dims))
			if err != nil {
				return errors.Wrapf(err, "%s iteration %d", result.PivotTestName(dims), iteration)
			}
			c.addMeasurement(result.PivotTestName(dims), size, iteration, res)
			bar.increment()
		}

		for _, ep := range b.endpoints() {
			res, err := b.prober.Do(ctx, fasthttp.MethodGet, ep.path, nil)
			if err != nil {
				return errors.Wrapf(err, "%s iteration %d", ep.test, iteration)
			}
			c.addMeasurement(ep.test, size, iteration, res)
			bar.increment()
		}
	}

	log.WithField("size", size).Info("Testing cache effectiveness")
	return b.cacheTest(ctx, c, size, bar)
}

// cacheTest measures an identical query against a cold cache, a warm cache
// and with the cache bypassed, in that order.
func (b *BenchmarkRunner) cacheTest(ctx context.Context, c *collector, size int, bar *progress) error {
	b.flusher.Flush(ctx)
	req := b.pivotRequest(b.cfg.CacheTestDimensions)
	for _, label := range []string{result.CacheMiss, result.CacheHit, result.CacheBypass} {
		if label == result.CacheBypass {
			req.CacheBypass = true
		}
		res, err := b.prober.Do(ctx, fasthttp.MethodPost, PivotPath, req)
		if err != nil {
			return errors.Wrap(err, label)
		}
		c.addCacheTest(label, size, res)
		bar.increment()
	}
	return nil
}

func (b *BenchmarkRunner) pivotRequest(dims int) PivotRequest {
	return PivotRequest{
		Dimensions: append([]string(nil), b.cfg.Dimensions[:dims]...),
		Metrics:    append([]string(nil), b.cfg.Metrics...),
		Filters:    PivotFilters{TradeDate: b.cfg.TradeDate},
	}
}

type endpoint struct {
	test string
	path string
}

func (b *BenchmarkRunner) endpoints() []endpoint {
	query := func(groupBy string) string {
		v := url.Values{}
		v.Set("trade_date", b.cfg.TradeDate)
		v.Set("group_by", groupBy)
		return v.Encode()
	}
	return []endpoint{
		{result.TestHealth, HealthPath},
		{result.TestExposure, ExposurePath + "?" + query("asset_class")},
		{result.TestPnl, PnlPath + "?" + query("portfolio_manager_id")},
		{result.TestInstruments, InstrumentsPath},
		{result.TestConstituents, ConstituentsPath},
	}
}

func (b *BenchmarkRunner) stepsPerSize() int {
	return b.cfg.Iterations*(len(b.cfg.Dimensions)+len(b.endpoints())) + 3
}
