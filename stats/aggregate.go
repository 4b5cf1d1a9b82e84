// Package stats aggregates raw measurements into per-test summaries.
package stats

import (
	"sort"

	mstats "github.com/montanaflynn/stats"

	"github.com/pivotapi/pivotbench/result"
)

// Summary is the aggregate of every measurement sharing a test name and
// dataset size.
type Summary struct {
	TestName     string  `json:"test_name"`
	DataSize     int     `json:"data_size"`
	Count        int     `json:"count"`
	AvgTotalMs   float64 `json:"avg_total_ms"`
	MinTotalMs   float64 `json:"min_total_ms"`
	MaxTotalMs   float64 `json:"max_total_ms"`
	AvgQueryMs   float64 `json:"avg_query_ms"`
	RowsReturned int     `json:"rows_returned"`

	// RowsDivergent is set when contributing measurements disagreed on the
	// number of rows returned; RowsReturned then holds the largest value.
	RowsDivergent bool `json:"rows_divergent,omitempty"`
}

type groupKey struct {
	test string
	size int
}

// statGroup collects the samples of one (test, size) group.
type statGroup struct {
	totals  []float64
	queries []float64
	rows    map[int]int
}

func newStatGroup() *statGroup {
	return &statGroup{rows: map[int]int{}}
}

func (g *statGroup) push(m result.Measurement) {
	g.totals = append(g.totals, m.TotalTimeMs)
	g.queries = append(g.queries, m.QueryTimeMs)
	g.rows[m.RowsReturned]++
}

func (g *statGroup) summarize(key groupKey) Summary {
	// sorting first makes the floating point sums independent of input order
	sort.Float64s(g.totals)
	sort.Float64s(g.queries)

	s := Summary{
		TestName:   key.test,
		DataSize:   key.size,
		Count:      len(g.totals),
		AvgTotalMs: round2(mean(g.totals)),
		MinTotalMs: round2(g.totals[0]),
		MaxTotalMs: round2(g.totals[len(g.totals)-1]),
		AvgQueryMs: round2(mean(g.queries)),
	}
	for rows := range g.rows {
		if rows > s.RowsReturned {
			s.RowsReturned = rows
		}
	}
	s.RowsDivergent = len(g.rows) > 1
	return s
}

// Aggregate groups ms by (test name, dataset size) and summarizes each
// group. The result is sorted by size, then test name, and does not depend
// on the order of ms.
func Aggregate(ms []result.Measurement) []Summary {
	groups := map[groupKey]*statGroup{}
	for _, m := range ms {
		k := groupKey{test: m.TestName, size: m.DataSize}
		g, ok := groups[k]
		if !ok {
			g = newStatGroup()
			groups[k] = g
		}
		g.push(m)
	}

	out := make([]Summary, 0, len(groups))
	for k, g := range groups {
		out = append(out, g.summarize(k))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DataSize != out[j].DataSize {
			return out[i].DataSize < out[j].DataSize
		}
		return out[i].TestName < out[j].TestName
	})
	return out
}

// Lookup returns the summary for test at size.
func Lookup(summaries []Summary, test string, size int) (Summary, bool) {
	for _, s := range summaries {
		if s.TestName == test && s.DataSize == size {
			return s, true
		}
	}
	return Summary{}, false
}

// ForSize returns the summaries at size, keeping their order.
func ForSize(summaries []Summary, size int) []Summary {
	var out []Summary
	for _, s := range summaries {
		if s.DataSize == size {
			out = append(out, s)
		}
	}
	return out
}

// Divergent returns the summaries whose measurements disagreed on rows
// returned.
func Divergent(summaries []Summary) []Summary {
	var out []Summary
	for _, s := range summaries {
		if s.RowsDivergent {
			out = append(out, s)
		}
	}
	return out
}

func mean(values []float64) float64 {
	m, err := mstats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

func round2(v float64) float64 {
	r, err := mstats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}
