package load

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/pivotapi/pivotbench/command"
)

// DefaultGeneratorCommand runs the pivot-data-gen tool through cargo.
const DefaultGeneratorCommand = "cargo run -p pivot-data-gen --release --"

// Dataset is the set of CSV files produced for one dataset size.
type Dataset struct {
	Size         int
	Trades       string
	Instruments  string
	Constituents string
}

// GenerateRequest describes the dataset to materialize.
type GenerateRequest struct {
	Rows              int
	PortfolioManagers int
	Seed              int64
	TradeDate         string
	Dir               string
}

// Generator materializes the three CSV datasets for a given row count.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Dataset, error)
}

// CommandGenerator runs the external data generator.
type CommandGenerator struct {
	exec   command.Executor
	prefix []string
}

// NewCommandGenerator parses cmdline, the generator invocation without
// arguments, for example DefaultGeneratorCommand.
func NewCommandGenerator(exec command.Executor, cmdline string) (*CommandGenerator, error) {
	prefix, err := command.Split(cmdline)
	if err != nil {
		return nil, err
	}
	return &CommandGenerator{exec: exec, prefix: prefix}, nil
}

// DatasetFor returns the file layout used for size under dir.
func DatasetFor(dir string, size int) Dataset {
	return Dataset{
		Size:         size,
		Trades:       filepath.Join(dir, fmt.Sprintf("trades_%d.csv", size)),
		Instruments:  filepath.Join(dir, "instruments.csv"),
		Constituents: filepath.Join(dir, "constituents.csv"),
	}
}

func (g *CommandGenerator) Generate(ctx context.Context, req GenerateRequest) (Dataset, error) {
	if req.Rows <= 0 {
		return Dataset{}, errors.Errorf("invalid row count %d", req.Rows)
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return Dataset{}, errors.Wrapf(err, "creating %s", req.Dir)
	}
	ds := DatasetFor(req.Dir, req.Rows)
	args := command.Join(g.prefix,
		"--rows", strconv.Itoa(req.Rows),
		"--portfolio-managers", strconv.Itoa(req.PortfolioManagers),
		"--output", ds.Trades,
		"--instruments-output", ds.Instruments,
		"--constituents-output", ds.Constituents,
		"--explode-constituents",
		"--seed", strconv.FormatInt(req.Seed, 10),
	)
	if req.TradeDate != "" {
		args = append(args, "--trade-date", req.TradeDate)
	}
	if _, err := g.exec.Run(ctx, command.Cmd{Args: args}); err != nil {
		return Dataset{}, errors.Wrapf(err, "generating %d rows", req.Rows)
	}
	return ds, nil
}
