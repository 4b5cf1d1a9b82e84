package campaign

import (
	"fmt"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"

	"github.com/pivotapi/pivotbench/stats"
)

// quickSummaryRows is how many summary rows are printed after each size.
const quickSummaryRows = 5

func (b *BenchmarkRunner) printQuickSummary(size int, summaries []stats.Summary) {
	if len(summaries) == 0 {
		return
	}
	_, _ = fmt.Fprintf(b.out, "Quick Summary for %s rows:\n", humanize.Comma(int64(size)))
	t := tabby.NewCustom(tabwriter.NewWriter(b.out, 0, 0, 2, ' ', 0))
	t.AddHeader("TEST", "AVG", "MIN", "MAX", "QUERY", "ROWS")
	for i, s := range summaries {
		if i == quickSummaryRows {
			break
		}
		t.AddLine(s.TestName,
			fmt.Sprintf("%.1fms", s.AvgTotalMs),
			fmt.Sprintf("%.1fms", s.MinTotalMs),
			fmt.Sprintf("%.1fms", s.MaxTotalMs),
			fmt.Sprintf("%.1fms", s.AvgQueryMs),
			humanize.Comma(int64(s.RowsReturned)))
	}
	t.Print()
}
