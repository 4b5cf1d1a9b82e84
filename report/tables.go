package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pivotapi/pivotbench/result"
	"github.com/pivotapi/pivotbench/stats"
)

// NotAvailable marks a cell for which no measurement exists.
const NotAvailable = "N/A"

// MinSpeedupDenominatorMs replaces a cache hit time of zero when computing
// the speedup ratio.
const MinSpeedupDenominatorMs = 0.1

// Endpoint and server query time table rows.
var (
	EndpointTests  = []string{result.TestHealth, result.TestExposure, result.TestPnl, result.TestInstruments, result.TestConstituents}
	QueryTimeTests = []string{result.PivotTestName(1), result.PivotTestName(3), result.PivotTestName(5), result.TestExposure, result.TestPnl}
)

// Input is everything a report is built from.
type Input struct {
	Sizes         []int
	Iterations    int
	MaxDimensions int
	Summaries     []stats.Summary
	CacheTests    []result.CacheTest
}

// ShortSize formats a dataset size as 1K, 500K, 1M, ...
func ShortSize(size int) string {
	switch {
	case size >= 1000000 && size%1000000 == 0:
		return fmt.Sprintf("%dM", size/1000000)
	case size >= 1000 && size%1000 == 0:
		return fmt.Sprintf("%dK", size/1000)
	default:
		return humanize.Comma(int64(size))
	}
}

// SizeLabel is the column header for a dataset size.
func SizeLabel(size int) string {
	return ShortSize(size) + " rows"
}

// Speedup is miss/hit, substituting MinSpeedupDenominatorMs for hit times
// below it.
func Speedup(missMs, hitMs float64) float64 {
	if hitMs < MinSpeedupDenominatorMs {
		hitMs = MinSpeedupDenominatorMs
	}
	return missMs / hitMs
}

func ms(v float64) string {
	return fmt.Sprintf("%.1fms", v)
}

func sizeHeader(first string, sizes []int) []string {
	h := []string{first}
	for _, size := range sizes {
		h = append(h, SizeLabel(size))
	}
	return h
}

func summaryRow(label, test string, in Input, value func(stats.Summary) float64) []string {
	row := []string{label}
	for _, size := range in.Sizes {
		s, ok := stats.Lookup(in.Summaries, test, size)
		if !ok {
			row = append(row, NotAvailable)
			continue
		}
		row = append(row, ms(value(s)))
	}
	return row
}

func avgTotal(s stats.Summary) float64 { return s.AvgTotalMs }
func avgQuery(s stats.Summary) float64 { return s.AvgQueryMs }

func dimensionLabel(dims int) string {
	if dims == 1 {
		return "1 dimension"
	}
	return fmt.Sprintf("%d dimensions", dims)
}

// PivotTable has one row per dimension count and one column per size.
func PivotTable(in Input) *Table {
	t := &Table{Header: sizeHeader("Dimensions", in.Sizes)}
	for dims := 1; dims <= in.MaxDimensions; dims++ {
		t.Rows = append(t.Rows, summaryRow(dimensionLabel(dims), result.PivotTestName(dims), in, avgTotal))
	}
	return t
}

// EndpointTable shows the average total time of the endpoint suite.
func EndpointTable(in Input) *Table {
	t := &Table{Header: sizeHeader("Endpoint", in.Sizes)}
	for _, test := range EndpointTests {
		t.Rows = append(t.Rows, summaryRow(test, test, in, avgTotal))
	}
	return t
}

// QueryTimeTable shows the server-reported query time of selected tests.
func QueryTimeTable(in Input) *Table {
	t := &Table{Header: sizeHeader("Test", in.Sizes)}
	for _, test := range QueryTimeTests {
		t.Rows = append(t.Rows, summaryRow(test, test, in, avgQuery))
	}
	return t
}

type cacheSample struct {
	miss, hit, bypass result.CacheTest
}

func cacheSamples(in Input, size int) (cacheSample, bool) {
	var c cacheSample
	var ok1, ok2, ok3 bool
	c.miss, ok1 = result.FindCacheTest(in.CacheTests, result.CacheMiss, size)
	c.hit, ok2 = result.FindCacheTest(in.CacheTests, result.CacheHit, size)
	c.bypass, ok3 = result.FindCacheTest(in.CacheTests, result.CacheBypass, size)
	return c, ok1 && ok2 && ok3
}

// CacheTable has one row per size with miss, hit, speedup and bypass times.
func CacheTable(in Input) *Table {
	t := &Table{Header: []string{"Dataset Size", "Cache Miss", "Cache Hit", "Speedup", "Cache Bypass"}}
	for _, size := range in.Sizes {
		c, ok := cacheSamples(in, size)
		if !ok {
			t.Rows = append(t.Rows, []string{humanize.Comma(int64(size)), NotAvailable, NotAvailable, NotAvailable, NotAvailable})
			continue
		}
		t.Rows = append(t.Rows, []string{
			humanize.Comma(int64(size)),
			ms(c.miss.TotalTimeMs),
			ms(c.hit.TotalTimeMs),
			fmt.Sprintf("%.1fx", Speedup(c.miss.TotalTimeMs, c.hit.TotalTimeMs)),
			ms(c.bypass.TotalTimeMs),
		})
	}
	return t
}

// CacheVerdict summarizes the average speedup over every size that has
// both a miss and a hit measurement.
func CacheVerdict(in Input) string {
	var sum float64
	var n int
	for _, size := range in.Sizes {
		miss, ok1 := result.FindCacheTest(in.CacheTests, result.CacheMiss, size)
		hit, ok2 := result.FindCacheTest(in.CacheTests, result.CacheHit, size)
		if !ok1 || !ok2 {
			continue
		}
		sum += Speedup(miss.TotalTimeMs, hit.TotalTimeMs)
		n++
	}
	if n == 0 {
		return "not tested"
	}
	return fmt.Sprintf("effective with %.1fx average speedup", sum/float64(n))
}

// Performance thresholds for the slowest test at the largest dataset size.
const (
	ExcellentThresholdMs = 1000
	GoodThresholdMs      = 5000
)

// PerformanceVerdict grades the slowest average total time measured at the
// largest configured dataset size.
func PerformanceVerdict(in Input) string {
	if len(in.Summaries) == 0 || len(in.Sizes) == 0 {
		return "not measured"
	}
	largest := in.Sizes[0]
	for _, size := range in.Sizes[1:] {
		if size > largest {
			largest = size
		}
	}
	at := stats.ForSize(in.Summaries, largest)
	if len(at) == 0 {
		return fmt.Sprintf("not measured at %s", SizeLabel(largest))
	}
	max := at[0].AvgTotalMs
	for _, s := range at[1:] {
		if s.AvgTotalMs > max {
			max = s.AvgTotalMs
		}
	}
	where := fmt.Sprintf("(max %.0fms at %s)", max, SizeLabel(largest))
	switch {
	case max < ExcellentThresholdMs:
		return "is excellent " + where
	case max < GoodThresholdMs:
		return "is good " + where
	default:
		return "may need optimization " + where
	}
}

func sizeList(sizes []int) string {
	labels := make([]string, 0, len(sizes))
	for _, size := range sizes {
		labels = append(labels, ShortSize(size))
	}
	return strings.Join(labels, ", ") + " rows"
}
