package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivotapi/pivotbench/command"
	"github.com/pivotapi/pivotbench/config"
)

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	f, err := FromConfig(cfg, command.Local{})
	require.NoError(t, err)
	rf, ok := f.(*RedisFlusher)
	require.True(t, ok)
	assert.NoError(t, rf.Close())

	cfg.Flusher = config.FlusherExec
	f, err = FromConfig(cfg, command.Local{})
	require.NoError(t, err)
	cf, ok := f.(*CommandFlusher)
	require.True(t, ok)
	assert.Equal(t, []string{"docker", "exec", "pivot-redis", "redis-cli", "FLUSHALL"}, cf.args)

	cfg.Flusher = "memcached"
	_, err = FromConfig(cfg, command.Local{})
	assert.Error(t, err)
}
