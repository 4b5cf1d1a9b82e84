package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// Render writes doc as Markdown.
func Render(w io.Writer, doc Document) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", doc.Title)
	for _, s := range doc.Sections {
		level := s.Level
		if level < 1 {
			level = 2
		}
		fmt.Fprintf(&buf, "%s %s\n\n", strings.Repeat("#", level), s.Heading)
		if len(s.Lines) > 0 {
			for _, line := range s.Lines {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
			buf.WriteByte('\n')
		}
		if s.Table != nil {
			renderTable(&buf, s.Table)
			buf.WriteByte('\n')
		}
		if s.Code != nil {
			fmt.Fprintf(&buf, "```%s\n%s\n```\n\n", s.Code.Lang, s.Code.Text)
		}
		if s.Rule {
			buf.WriteString("---\n\n")
		}
	}
	if doc.Footer != "" {
		buf.WriteString(doc.Footer)
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func renderTable(w io.Writer, t *Table) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.AppendBulk(t.Rows)
	table.Render()
}

// WriteFile renders doc to path, creating parent directories.
func WriteFile(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := Render(f, doc); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}
