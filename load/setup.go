package load

import (
	"github.com/pkg/errors"

	"github.com/pivotapi/pivotbench/command"
	"github.com/pivotapi/pivotbench/config"
)

// FromConfig builds the Provisioner described by cfg. The returned
// Provisioner still needs Init.
func FromConfig(cfg config.Campaign, exec command.Executor) (*Provisioner, error) {
	gen, err := NewCommandGenerator(exec, cfg.GeneratorCommand)
	if err != nil {
		return nil, errors.Wrap(err, "generator command")
	}

	var creator TableCreator
	var counter RowCounter
	switch cfg.Loader {
	case config.LoaderHTTP:
		ch := NewClickHouseHTTP(cfg.ClickHouseHTTP, cfg.APIReadTimeout)
		ch.User = cfg.ClickHouseUser
		ch.Password = cfg.ClickHousePassword
		creator, counter = ch, ch
	case config.LoaderExec:
		ec, err := NewExecCreator(exec, cfg.ClickHouseClientCommand)
		if err != nil {
			return nil, errors.Wrap(err, "clickhouse client command")
		}
		creator, counter = ec, ec
	default:
		return nil, errors.Errorf("unknown loader %q", cfg.Loader)
	}

	if cfg.ClickHousePgDSN != "" {
		sc, err := OpenSQLRowCounter(cfg.ClickHousePgDSN)
		if err != nil {
			return nil, err
		}
		counter = sc
	}

	return NewProvisioner(gen, creator, counter, DefaultTables(cfg.Database), Options{
		Dir:               cfg.DataDir,
		Seed:              cfg.Seed,
		PortfolioManagers: cfg.PortfolioManagers,
		TradeDate:         cfg.TradeDate,
	}), nil
}
