// Package command runs the external tools the harness depends on: the data
// generator, clickhouse-client and redis-cli, usually through docker exec.
package command

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// Cmd is a single invocation of an external program.
type Cmd struct {
	Args  []string
	Stdin io.Reader
}

func (c Cmd) String() string {
	return strings.Join(c.Args, " ")
}

// Executor runs a command to completion and returns its standard output.
// A non-zero exit status is reported as an error.
type Executor interface {
	Run(ctx context.Context, c Cmd) ([]byte, error)
}

// Split parses a shell-like command prefix such as
// "docker exec -i pivot-clickhouse clickhouse-client".
func Split(prefix string) ([]string, error) {
	args, err := shlex.Split(prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "problem parsing command %q", prefix)
	}
	if len(args) == 0 {
		return nil, errors.Errorf("no arguments in command %q", prefix)
	}
	return args, nil
}

// Join appends args to a copy of prefix.
func Join(prefix []string, args ...string) []string {
	out := make([]string, 0, len(prefix)+len(args))
	out = append(out, prefix...)
	return append(out, args...)
}

// Local runs commands on this host with os/exec.
type Local struct{}

func (Local) Run(ctx context.Context, c Cmd) ([]byte, error) {
	if len(c.Args) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Stdin = c.Stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.Bytes(), errors.Wrapf(err, "running %q", c.String())
		}
		return stdout.Bytes(), errors.Wrapf(err, "running %q: %s", c.String(), msg)
	}
	return stdout.Bytes(), nil
}
