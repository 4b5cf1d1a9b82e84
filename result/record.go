// Package result holds the raw records a campaign produces and the archive
// they are saved to.
package result

import "fmt"

// Endpoint suite test names.
const (
	TestHealth       = "health"
	TestExposure     = "exposure"
	TestPnl          = "pnl"
	TestInstruments  = "instruments"
	TestConstituents = "constituents"
)

// PivotTestName names the pivot query test grouping by dims dimensions.
func PivotTestName(dims int) string {
	return fmt.Sprintf("pivot_%ddim", dims)
}

// Cache effectiveness test labels, produced in this order for every size.
const (
	CacheMiss   = "cache_miss"
	CacheHit    = "cache_hit"
	CacheBypass = "cache_bypass"
)

// Measurement is one observed probe result. Values are never modified after
// the probe that produced them returns.
type Measurement struct {
	TestName     string  `json:"test_name"`
	DataSize     int     `json:"data_size"`
	TotalTimeMs  float64 `json:"total_time_ms"`
	QueryTimeMs  float64 `json:"query_time_ms"`
	Cached       bool    `json:"cached"`
	RowsReturned int     `json:"rows_returned"`
	Iteration    int     `json:"iteration"`
}

// CacheTest is one of the miss/hit/bypass probes run once per dataset size.
type CacheTest struct {
	Test        string  `json:"test"`
	Size        int     `json:"size"`
	TotalTimeMs float64 `json:"total_time_ms"`
	QueryTimeMs float64 `json:"query_time_ms"`
	Cached      bool    `json:"cached"`
}

// FindCacheTest returns the cache test with the given label and size.
func FindCacheTest(tests []CacheTest, label string, size int) (CacheTest, bool) {
	for _, t := range tests {
		if t.Test == label && t.Size == size {
			return t, true
		}
	}
	return CacheTest{}, false
}

// ForSize returns the measurements taken at size, preserving order.
func ForSize(ms []Measurement, size int) []Measurement {
	var out []Measurement
	for _, m := range ms {
		if m.DataSize == size {
			out = append(out, m)
		}
	}
	return out
}
