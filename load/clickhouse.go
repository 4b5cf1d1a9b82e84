package load

import (
	"context"
	"database/sql"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/pivotapi/pivotbench/command"
)

// Doer is the part of fasthttp.HostClient the ClickHouse HTTP loader needs.
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// ClickHouseHTTP loads tables through the ClickHouse HTTP interface.
type ClickHouseHTTP struct {
	Addr     string
	User     string
	Password string
	Timeout  time.Duration

	client Doer
}

// NewClickHouseHTTP returns a loader talking to addr ("127.0.0.1:8123").
func NewClickHouseHTTP(addr string, timeout time.Duration) *ClickHouseHTTP {
	return &ClickHouseHTTP{Addr: addr, Timeout: timeout}
}

// WithClient replaces the HTTP client, mostly for tests.
func (c *ClickHouseHTTP) WithClient(client Doer) *ClickHouseHTTP {
	c.client = client
	return c
}

func (c *ClickHouseHTTP) Init() error {
	if c.Addr == "" {
		return errors.New("clickhouse http address is empty")
	}
	if c.client == nil {
		timeout := c.Timeout
		c.client = &fasthttp.HostClient{
			Addr:                c.Addr,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: timeout,
			Dial: func(addr string) (net.Conn, error) {
				return fasthttp.DialTimeout(addr, timeout)
			},
		}
	}
	return nil
}

func (c *ClickHouseHTTP) Truncate(ctx context.Context, table string) error {
	_, err := c.query(ctx, "TRUNCATE TABLE "+table, nil)
	return err
}

func (c *ClickHouseHTTP) Insert(ctx context.Context, table string, r io.Reader) error {
	_, err := c.query(ctx, "INSERT INTO "+table+" FORMAT CSVWithNames", r)
	return err
}

func (c *ClickHouseHTTP) Count(ctx context.Context, table string) (int64, error) {
	out, err := c.query(ctx, "SELECT count() FROM "+table, nil)
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

func (c *ClickHouseHTTP) query(ctx context.Context, q string, body io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.client == nil {
		return nil, errors.New("clickhouse http loader used before Init")
	}
	req := fasthttp.AcquireRequest()
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(res)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("/?query=" + url.QueryEscape(q))
	req.Header.SetHost(c.Addr)
	if c.User != "" {
		req.Header.Set("X-ClickHouse-User", c.User)
		req.Header.Set("X-ClickHouse-Key", c.Password)
	}
	if body != nil {
		req.Header.SetContentType("text/csv")
		req.SetBodyStream(body, -1)
	}

	if err := c.client.DoTimeout(req, res, c.Timeout); err != nil {
		return nil, errors.Wrapf(err, "clickhouse query %q", q)
	}
	if res.StatusCode() != fasthttp.StatusOK {
		return nil, errors.Errorf("clickhouse query %q: status %d: %s", q, res.StatusCode(), strings.TrimSpace(string(res.Body())))
	}
	return append([]byte(nil), res.Body()...), nil
}

// DefaultClickHouseClientCommand runs clickhouse-client in the datastore
// container, reading insert data from stdin.
const DefaultClickHouseClientCommand = "docker exec -i pivot-clickhouse clickhouse-client"

// ExecCreator loads tables by running clickhouse-client.
type ExecCreator struct {
	exec   command.Executor
	prefix []string
}

func NewExecCreator(exec command.Executor, cmdline string) (*ExecCreator, error) {
	prefix, err := command.Split(cmdline)
	if err != nil {
		return nil, err
	}
	return &ExecCreator{exec: exec, prefix: prefix}, nil
}

func (c *ExecCreator) Init() error { return nil }

func (c *ExecCreator) Truncate(ctx context.Context, table string) error {
	_, err := c.exec.Run(ctx, command.Cmd{Args: command.Join(c.prefix, "--query", "TRUNCATE TABLE "+table)})
	return errors.Wrapf(err, "truncating %s", table)
}

func (c *ExecCreator) Insert(ctx context.Context, table string, r io.Reader) error {
	_, err := c.exec.Run(ctx, command.Cmd{
		Args:  command.Join(c.prefix, "--query", "INSERT INTO "+table+" FORMAT CSVWithNames"),
		Stdin: r,
	})
	return errors.Wrapf(err, "inserting into %s", table)
}

func (c *ExecCreator) Count(ctx context.Context, table string) (int64, error) {
	out, err := c.exec.Run(ctx, command.Cmd{Args: command.Join(c.prefix, "--query", "SELECT count() FROM "+table)})
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s", table)
	}
	return parseCount(out)
}

// SQLRowCounter counts rows over ClickHouse's PostgreSQL wire protocol.
type SQLRowCounter struct {
	db *sql.DB
}

// OpenSQLRowCounter opens dsn with the postgres driver, for example
// "postgres://default@127.0.0.1:9005/pivot?sslmode=disable".
func OpenSQLRowCounter(dsn string) (*SQLRowCounter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening clickhouse postgres interface")
	}
	return NewSQLRowCounter(db), nil
}

func NewSQLRowCounter(db *sql.DB) *SQLRowCounter {
	return &SQLRowCounter{db: db}
}

func (c *SQLRowCounter) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, "SELECT count() FROM "+table).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "counting %s", table)
	}
	return n, nil
}

func (c *SQLRowCounter) Close() error {
	return c.db.Close()
}

func parseCount(out []byte) (int64, error) {
	s := strings.TrimSpace(string(out))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing row count %q", s)
	}
	return n, nil
}
