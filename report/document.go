// Package report turns aggregated benchmark results into a Markdown report.
//
// Building and rendering are separate steps: Build produces an immutable
// Document from the summaries and cache tests, Render writes it out in one
// pass. Both are deterministic; the only time-dependent field is the
// generation timestamp, which callers inject through Options.Now.
package report

import "time"

// Table is a rectangular block of already formatted cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cell returns the cell at row r, column c.
func (t *Table) Cell(r, c int) string {
	return t.Rows[r][c]
}

// CodeBlock is a fenced block of preformatted text.
type CodeBlock struct {
	Lang string
	Text string
}

// Section is one headed part of the report. Lines are emitted before the
// table, the code block follows the table.
type Section struct {
	Heading string
	Level   int
	Lines   []string
	Table   *Table
	Code    *CodeBlock
	Rule    bool
}

// Document is a complete report ready to render.
type Document struct {
	Title       string
	GeneratedAt time.Time
	Sections    []Section
	Footer      string

	CacheVerdict       string
	PerformanceVerdict string
}

// Section returns the first section with the given heading.
func (d Document) Section(heading string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Heading == heading {
			return s, true
		}
	}
	return Section{}, false
}
