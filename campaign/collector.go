package campaign

import (
	"fmt"
	"io"

	"github.com/pivotapi/pivotbench/probe"
	"github.com/pivotapi/pivotbench/result"
)

// collector records probe results in the order they were taken. Only the
// runner goroutine appends to it.
type collector struct {
	printResponses bool
	out            io.Writer

	measurements []result.Measurement
	cacheTests   []result.CacheTest
}

func newCollector(printResponses bool, out io.Writer) *collector {
	return &collector{printResponses: printResponses, out: out}
}

func (c *collector) addMeasurement(test string, size, iteration int, res probe.Result) {
	m := result.Measurement{
		TestName:     test,
		DataSize:     size,
		TotalTimeMs:  res.TotalTimeMs,
		QueryTimeMs:  res.Metadata.QueryTime(),
		Cached:       res.Metadata.IsCached(),
		RowsReturned: res.Metadata.Rows(),
		Iteration:    iteration,
	}
	c.measurements = append(c.measurements, m)
	if c.printResponses {
		_, _ = fmt.Fprintf(c.out, "%-14s size=%d iteration=%d status=%d total=%.2fms query=%.2fms cached=%t rows=%d metadata=%t\n",
			test, size, iteration, res.StatusCode, m.TotalTimeMs, m.QueryTimeMs, m.Cached, m.RowsReturned, res.Metadata.Present)
	}
}

func (c *collector) addCacheTest(label string, size int, res probe.Result) {
	t := result.CacheTest{
		Test:        label,
		Size:        size,
		TotalTimeMs: res.TotalTimeMs,
		QueryTimeMs: res.Metadata.QueryTime(),
		Cached:      res.Metadata.IsCached(),
	}
	c.cacheTests = append(c.cacheTests, t)
	if c.printResponses {
		_, _ = fmt.Fprintf(c.out, "%-14s size=%d status=%d total=%.2fms query=%.2fms cached=%t\n",
			label, size, res.StatusCode, t.TotalTimeMs, t.QueryTimeMs, t.Cached)
	}
}
