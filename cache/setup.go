package cache

import (
	"github.com/pkg/errors"

	"github.com/pivotapi/pivotbench/command"
	"github.com/pivotapi/pivotbench/config"
)

// FromConfig returns the Flusher selected by cfg.Flusher.
func FromConfig(cfg config.Campaign, exec command.Executor) (Flusher, error) {
	switch cfg.Flusher {
	case config.FlusherRedis:
		return NewRedisFlusher(cfg.RedisHost), nil
	case config.FlusherExec:
		return NewCommandFlusher(exec, cfg.FlushCommand)
	default:
		return nil, errors.Errorf("unknown flusher %q", cfg.Flusher)
	}
}
