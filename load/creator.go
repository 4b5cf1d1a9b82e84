package load

import (
	"context"
	"io"
)

// TableCreator prepares the datastore tables for a benchmark run: it clears
// them and bulk inserts CSV files with a header row.
type TableCreator interface {
	// Init should set up any connection needed for talking to the datastore.
	Init() error

	// Truncate removes all rows from table.
	Truncate(ctx context.Context, table string) error

	// Insert bulk loads the CSV (with header row) read from r into table.
	Insert(ctx context.Context, table string, r io.Reader) error
}

// TableCreatorCloser is a TableCreator that also needs a Close method to
// clean up connections after provisioning.
type TableCreatorCloser interface {
	TableCreator

	// Close cleans up any datastore connections
	Close() error
}

// RowCounter reports how many rows a table holds.
type RowCounter interface {
	Count(ctx context.Context, table string) (int64, error)
}

// Tables names the three tables a dataset is loaded into.
type Tables struct {
	Trades       string
	Instruments  string
	Constituents string
}

// DefaultTables returns the table names used by the pivot schema in db.
func DefaultTables(db string) Tables {
	return Tables{
		Trades:       db + ".trades_1d",
		Instruments:  db + ".instruments",
		Constituents: db + ".constituents",
	}
}

// all returns the tables in load order: the reference tables the fact
// table depends on come first.
func (t Tables) all() []string {
	return []string{t.Instruments, t.Constituents, t.Trades}
}
