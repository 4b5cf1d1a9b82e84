// Package load provisions dataset sizes: it runs the data generator and
// replaces the contents of the datastore tables with the generated files.
package load

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultSeed keeps generated datasets identical across runs.
	DefaultSeed = 42
	// DefaultPortfolioManagers is the number of portfolio managers generated.
	DefaultPortfolioManagers = 50
)

// Options configure dataset generation.
type Options struct {
	Dir               string
	Seed              int64
	PortfolioManagers int
	TradeDate         string
}

// Provisioner generates a dataset of a given size and loads it, replacing
// whatever the tables held before. It is destructive by design: every size
// starts from exactly-sized tables.
type Provisioner struct {
	gen     Generator
	creator TableCreator
	counter RowCounter
	tables  Tables
	opts    Options
}

// NewProvisioner creates a Provisioner. counter may be nil, in which case
// the loaded row count is not checked.
func NewProvisioner(gen Generator, creator TableCreator, counter RowCounter, tables Tables, opts Options) *Provisioner {
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.PortfolioManagers == 0 {
		opts.PortfolioManagers = DefaultPortfolioManagers
	}
	return &Provisioner{gen: gen, creator: creator, counter: counter, tables: tables, opts: opts}
}

// Init sets up the datastore connection.
func (p *Provisioner) Init() error {
	return errors.Wrap(p.creator.Init(), "initializing table loader")
}

// Close releases the connections held by the table loader and the row
// counter.
func (p *Provisioner) Close() error {
	var result *multierror.Error
	if c, ok := p.creator.(TableCreatorCloser); ok {
		result = multierror.Append(result, c.Close())
	}
	if c, ok := p.counter.(io.Closer); ok && interface{}(p.counter) != interface{}(p.creator) {
		result = multierror.Append(result, c.Close())
	}
	return result.ErrorOrNil()
}

// Provision generates size rows and loads them. Any failure is returned and
// leaves the tables in an unspecified state; callers skip the size.
func (p *Provisioner) Provision(ctx context.Context, size int) error {
	start := time.Now()
	log.WithField("size", size).Infof("Generating %s rows...", humanize.Comma(int64(size)))
	ds, err := p.gen.Generate(ctx, GenerateRequest{
		Rows:              size,
		PortfolioManagers: p.opts.PortfolioManagers,
		Seed:              p.opts.Seed,
		TradeDate:         p.opts.TradeDate,
		Dir:               p.opts.Dir,
	})
	if err != nil {
		return errors.Wrap(err, "data generation failed")
	}

	log.WithField("size", size).Infof("Loading %s rows into ClickHouse...", humanize.Comma(int64(size)))
	if err := p.load(ctx, ds); err != nil {
		return err
	}

	if p.counter != nil {
		n, err := p.counter.Count(ctx, p.tables.Trades)
		if err != nil {
			log.WithField("size", size).Warnf("Could not count loaded rows: %s", err)
		} else {
			log.WithField("size", size).Infof("Loaded %s rows", humanize.Comma(n))
		}
	}
	log.WithField("size", size).Debugf("Provisioning took %0.3f sec", time.Since(start).Seconds())
	return nil
}

func (p *Provisioner) load(ctx context.Context, ds Dataset) error {
	// truncate the fact table before the reference tables it refers to
	all := p.tables.all()
	for i := len(all) - 1; i >= 0; i-- {
		if err := p.creator.Truncate(ctx, all[i]); err != nil {
			return errors.Wrapf(err, "clearing %s", all[i])
		}
	}

	files := map[string]string{
		p.tables.Instruments:  ds.Instruments,
		p.tables.Constituents: ds.Constituents,
		p.tables.Trades:       ds.Trades,
	}
	for _, table := range all {
		if err := p.insertFile(ctx, table, files[table]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) insertFile(ctx context.Context, table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	if err := p.creator.Insert(ctx, table, f); err != nil {
		return errors.Wrapf(err, "loading %s into %s", path, table)
	}
	return nil
}
