package command

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{in: "docker exec pivot-redis redis-cli FLUSHALL", want: []string{"docker", "exec", "pivot-redis", "redis-cli", "FLUSHALL"}},
		{in: `clickhouse-client --query "SELECT count() FROM pivot.trades_1d"`, want: []string{"clickhouse-client", "--query", "SELECT count() FROM pivot.trades_1d"}},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, c := range cases {
		got, err := Split(c.in)
		if c.wantErr {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
	}
}

func TestJoinDoesNotAliasPrefix(t *testing.T) {
	prefix := make([]string, 2, 8)
	prefix[0], prefix[1] = "docker", "exec"
	a := Join(prefix, "a")
	b := Join(prefix, "b")
	assert.Equal(t, []string{"docker", "exec", "a"}, a)
	assert.Equal(t, []string{"docker", "exec", "b"}, b)
}

func TestLocalRun(t *testing.T) {
	out, err := Local{}.Run(context.Background(), Cmd{
		Args:  []string{"sh", "-c", "cat"},
		Stdin: strings.NewReader("symbol,name\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "symbol,name\n", string(out))
}

func TestLocalRunFailureIncludesStderr(t *testing.T) {
	_, err := Local{}.Run(context.Background(), Cmd{Args: []string{"sh", "-c", "echo boom >&2; exit 3"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLocalRunEmpty(t *testing.T) {
	_, err := Local{}.Run(context.Background(), Cmd{})
	assert.Error(t, err)
}
