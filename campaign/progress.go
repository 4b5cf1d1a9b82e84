package campaign

import (
	"io"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
)

const progressTemplate pb.ProgressBarTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{etime . }}`

// progress is a per-size progress bar. A disabled progress does nothing.
type progress struct {
	bar *pb.ProgressBar
}

func newProgress(enabled bool, w io.Writer, size, steps int) *progress {
	if !enabled {
		return &progress{}
	}
	bar := progressTemplate.New(steps).
		SetWriter(w).
		Set("prefix", humanize.Comma(int64(size))+" rows").
		Start()
	return &progress{bar: bar}
}

func (p *progress) increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
