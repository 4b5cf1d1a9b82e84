package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivotapi/pivotbench/command"
)

func TestRedisFlusher(t *testing.T) {
	db := miniredis.RunT(t)
	require.NoError(t, db.Set("pivot:abc", "cached-response"))
	require.NoError(t, db.Set("pivot:def", "cached-response"))

	f := NewRedisFlusher(db.Addr())
	defer f.Close()

	require.NoError(t, f.FlushAll(context.Background()))
	assert.Empty(t, db.Keys())
}

func TestRedisFlusherUnreachable(t *testing.T) {
	db := miniredis.RunT(t)
	addr := db.Addr()
	db.Close()

	f := NewRedisFlusher(addr)
	defer f.Close()
	assert.Error(t, f.FlushAll(context.Background()))
}

type fakeExecutor struct {
	calls [][]string
	err   error
}

func (e *fakeExecutor) Run(_ context.Context, c command.Cmd) ([]byte, error) {
	e.calls = append(e.calls, c.Args)
	return nil, e.err
}

func TestCommandFlusher(t *testing.T) {
	exec := &fakeExecutor{}
	f, err := NewCommandFlusher(exec, DefaultFlushCommand)
	require.NoError(t, err)

	require.NoError(t, f.FlushAll(context.Background()))
	require.Len(t, exec.calls, 1)
	assert.Equal(t, []string{"docker", "exec", "pivot-redis", "redis-cli", "FLUSHALL"}, exec.calls[0])
}

func TestNewCommandFlusherRejectsEmpty(t *testing.T) {
	_, err := NewCommandFlusher(&fakeExecutor{}, "")
	assert.Error(t, err)
}

type failingFlusher struct{ calls int }

func (f *failingFlusher) FlushAll(context.Context) error {
	f.calls++
	return errors.New("connection refused")
}

func TestControllerSwallowsFailures(t *testing.T) {
	f := &failingFlusher{}
	c := NewController(f)

	c.Flush(context.Background())
	c.Flush(context.Background())

	assert.Equal(t, 2, f.calls)
	assert.Equal(t, 2, c.Flushes())
	assert.Equal(t, 2, c.Failures())
}

func TestControllerFlushesRedis(t *testing.T) {
	db := miniredis.RunT(t)
	require.NoError(t, db.Set("k", "v"))
	f := NewRedisFlusher(db.Addr())
	defer f.Close()

	c := NewController(f)
	c.Flush(context.Background())
	assert.Equal(t, 0, c.Failures())
	assert.False(t, db.Exists("k"))
}
