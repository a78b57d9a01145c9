// Package hq manages the HyperQueue installation around the scheduler:
// the server process, automatic allocations and the hq binary itself.
package hq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/transport"
	"github.com/Justype/hqadapter/internal/utils"
)

// Client runs hq management commands through a Transport.
type Client struct {
	t    transport.Transport
	bin  string
	caps scheduler.Capabilities

	// ServerWait bounds how long StartServer waits for the server to answer.
	ServerWait time.Duration
}

// NewClient returns a Client invoking bin (DefaultBinary if empty).
func NewClient(t transport.Transport, bin string, caps scheduler.Capabilities) *Client {
	if bin == "" {
		bin = scheduler.DefaultBinary
	}
	return &Client{t: t, bin: bin, caps: caps, ServerWait: DefaultServerWait}
}

// run executes command and turns a non-zero exit into a SchedulerError.
func (c *Client) run(ctx context.Context, op, command string) (*transport.Result, error) {
	res, err := c.t.Exec(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	if res.ExitCode != 0 {
		return res, scheduler.NewSchedulerError(op, res.ExitCode, res.Stdout, res.Stderr, scheduler.ErrNonZeroExit)
	}
	return res, nil
}

// message returns whatever hq printed; several hq subcommands report
// success on stderr.
func message(res *transport.Result) string {
	out := strings.TrimSpace(res.Stdout)
	errOut := strings.TrimSpace(res.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

func (c *Client) debugCommand(command string) {
	utils.PrintDebug("Run %s", utils.StyleCommand(command))
}
