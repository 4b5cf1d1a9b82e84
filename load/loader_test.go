package load

import (
	"context"
	"io"
	"io/ioutil"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	requests []GenerateRequest
	err      error
}

func (g *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (Dataset, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return Dataset{}, g.err
	}
	ds := DatasetFor(req.Dir, req.Rows)
	for path, content := range map[string]string{
		ds.Trades:       "trade_date,symbol\n2024-01-15,AAPL\n",
		ds.Instruments:  "symbol,name\nAAPL,Apple\n",
		ds.Constituents: "parent_symbol,constituent_symbol\nSPY,AAPL\n",
	} {
		if err := ioutil.WriteFile(path, []byte(content), 0o644); err != nil {
			return Dataset{}, err
		}
	}
	return ds, nil
}

type fakeCreator struct {
	ops       []string
	inserted  map[string]string
	failOn    string
	initCalls int
	closed    bool
}

func (c *fakeCreator) Init() error {
	c.initCalls++
	return nil
}

func (c *fakeCreator) Truncate(_ context.Context, table string) error {
	c.ops = append(c.ops, "truncate "+table)
	if c.failOn == "truncate "+table {
		return errors.New("table locked")
	}
	return nil
}

func (c *fakeCreator) Insert(_ context.Context, table string, r io.Reader) error {
	c.ops = append(c.ops, "insert "+table)
	if c.failOn == "insert "+table {
		return errors.New("bad csv")
	}
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	if c.inserted == nil {
		c.inserted = map[string]string{}
	}
	c.inserted[table] = string(buf)
	return nil
}

func (c *fakeCreator) Close() error {
	c.closed = true
	return nil
}

type fakeCounter struct {
	tables []string
	n      int64
}

func (c *fakeCounter) Count(_ context.Context, table string) (int64, error) {
	c.tables = append(c.tables, table)
	return c.n, nil
}

func TestProvisionOrder(t *testing.T) {
	dir := t.TempDir()
	gen := &fakeGenerator{}
	creator := &fakeCreator{}
	counter := &fakeCounter{n: 1000}
	p := NewProvisioner(gen, creator, counter, DefaultTables("pivot"), Options{Dir: dir, TradeDate: "2024-01-15"})

	require.NoError(t, p.Init())
	require.NoError(t, p.Provision(context.Background(), 1000))

	require.Len(t, gen.requests, 1)
	assert.Equal(t, GenerateRequest{
		Rows:              1000,
		PortfolioManagers: DefaultPortfolioManagers,
		Seed:              DefaultSeed,
		TradeDate:         "2024-01-15",
		Dir:               dir,
	}, gen.requests[0])

	assert.Equal(t, []string{
		"truncate pivot.trades_1d",
		"truncate pivot.constituents",
		"truncate pivot.instruments",
		"insert pivot.instruments",
		"insert pivot.constituents",
		"insert pivot.trades_1d",
	}, creator.ops)
	assert.Equal(t, "symbol,name\nAAPL,Apple\n", creator.inserted["pivot.instruments"])
	assert.Equal(t, "trade_date,symbol\n2024-01-15,AAPL\n", creator.inserted["pivot.trades_1d"])
	assert.Equal(t, []string{"pivot.trades_1d"}, counter.tables)

	require.NoError(t, p.Close())
	assert.True(t, creator.closed)
	assert.Equal(t, 1, creator.initCalls)
}

func TestProvisionGeneratorFailureLeavesTablesAlone(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("cargo exited with status 101")}
	creator := &fakeCreator{}
	p := NewProvisioner(gen, creator, nil, DefaultTables("pivot"), Options{Dir: t.TempDir()})

	err := p.Provision(context.Background(), 100000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data generation failed")
	assert.Empty(t, creator.ops)
}

func TestProvisionLoadFailures(t *testing.T) {
	for _, failOn := range []string{"truncate pivot.instruments", "insert pivot.constituents", "insert pivot.trades_1d"} {
		t.Run(failOn, func(t *testing.T) {
			creator := &fakeCreator{failOn: failOn}
			p := NewProvisioner(&fakeGenerator{}, creator, nil, DefaultTables("pivot"), Options{Dir: t.TempDir()})
			assert.Error(t, p.Provision(context.Background(), 1000))
			assert.Equal(t, failOn, creator.ops[len(creator.ops)-1])
		})
	}
}

func TestProvisionMissingFile(t *testing.T) {
	creator := &fakeCreator{}
	gen := generatorFunc(func(_ context.Context, req GenerateRequest) (Dataset, error) {
		return DatasetFor(req.Dir, req.Rows), nil
	})
	p := NewProvisioner(gen, creator, nil, DefaultTables("pivot"), Options{Dir: t.TempDir()})

	assert.Error(t, p.Provision(context.Background(), 1000))
	assert.NotContains(t, creator.ops, "insert pivot.instruments")
}

type generatorFunc func(ctx context.Context, req GenerateRequest) (Dataset, error)

func (f generatorFunc) Generate(ctx context.Context, req GenerateRequest) (Dataset, error) {
	return f(ctx, req)
}

func TestProvisionerCloseWithoutCloser(t *testing.T) {
	p := NewProvisioner(&fakeGenerator{}, creatorOnly{}, nil, DefaultTables("pivot"), Options{})
	assert.NoError(t, p.Close())
}

type creatorOnly struct{}

func (creatorOnly) Init() error { return nil }

func (creatorOnly) Truncate(context.Context, string) error { return nil }

func (creatorOnly) Insert(context.Context, string, io.Reader) error { return nil }
