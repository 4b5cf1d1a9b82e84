// Package cache flushes the API's result cache between measurements.
package cache

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pivotapi/pivotbench/command"
)

// Flusher empties the whole cache. FlushAll must not return before the
// flush is complete.
type Flusher interface {
	FlushAll(ctx context.Context) error
}

// RedisFlusher flushes a Redis instance with FLUSHALL.
type RedisFlusher struct {
	client *redis.Client
}

// NewRedisFlusher connects to the Redis server at addr ("127.0.0.1:6379").
func NewRedisFlusher(addr string) *RedisFlusher {
	return &RedisFlusher{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (f *RedisFlusher) FlushAll(ctx context.Context) error {
	return errors.Wrap(f.client.FlushAll(ctx).Err(), "redis FLUSHALL")
}

func (f *RedisFlusher) Close() error {
	return f.client.Close()
}

// CommandFlusher flushes the cache by running an external command, by
// default redis-cli inside the cache container.
type CommandFlusher struct {
	exec command.Executor
	args []string
}

// DefaultFlushCommand is the flush used by the original docker setup.
const DefaultFlushCommand = "docker exec pivot-redis redis-cli FLUSHALL"

// NewCommandFlusher parses cmdline with shell quoting rules.
func NewCommandFlusher(exec command.Executor, cmdline string) (*CommandFlusher, error) {
	args, err := command.Split(cmdline)
	if err != nil {
		return nil, err
	}
	return &CommandFlusher{exec: exec, args: args}, nil
}

func (f *CommandFlusher) FlushAll(ctx context.Context) error {
	_, err := f.exec.Run(ctx, command.Cmd{Args: f.args})
	return err
}

// Controller is the flush barrier used by the campaign. Flush never fails:
// a missed flush degrades measurement validity but must not stop a run, so
// errors are logged and counted.
type Controller struct {
	flusher  Flusher
	failures int
	flushes  int
}

func NewController(f Flusher) *Controller {
	return &Controller{flusher: f}
}

func (c *Controller) Flush(ctx context.Context) {
	c.flushes++
	if err := c.flusher.FlushAll(ctx); err != nil {
		c.failures++
		log.Warnf("Cache flush failed, following measurements may be warm: %s", err)
		return
	}
	log.Debug("Cache flushed")
}

// Failures returns how many flushes failed so far.
func (c *Controller) Failures() int {
	return c.failures
}

// Flushes returns how many flushes were attempted so far.
func (c *Controller) Flushes() int {
	return c.flushes
}
