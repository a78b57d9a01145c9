package hq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Justype/hqadapter/internal/utils"
)

// Files receiving the output of a background hq server, relative to $HOME.
const (
	ServerStdout = ".hq-stdout"
	ServerStderr = ".hq-stderr"
)

// DefaultServerWait is the Client.ServerWait of NewClient.
const DefaultServerWait = 10 * time.Second

// ServerInfo returns the output of `hq server info`.
func (c *Client) ServerInfo(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "server info", c.bin+" server info")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ServerRunning reports whether `hq server info` succeeds.
// Only transport failures are returned as errors.
func (c *Client) ServerRunning(ctx context.Context) (bool, error) {
	res, err := c.t.Exec(ctx, c.bin+" server info")
	if err != nil {
		return false, fmt.Errorf("transport: %w", err)
	}
	return res.ExitCode == 0, nil
}

// StartCommand returns the command starting a detached server. A non-empty
// host is passed as --host so compute nodes can reach the login node under
// a fully qualified name.
func (c *Client) StartCommand(host string) string {
	parts := []string{"nohup", c.bin, "server", "start"}
	if host != "" {
		parts = append(parts, "--host", utils.ShellQuote(host))
	}
	parts = append(parts, "1>$HOME/"+ServerStdout, "2>$HOME/"+ServerStderr, "&")
	return strings.Join(parts, " ")
}

// StartServer starts the server unless one is already running, and returns
// whether it started one. With a non-empty domain the server listens on
// `hostname`.domain.
func (c *Client) StartServer(ctx context.Context, domain string) (bool, error) {
	running, err := c.ServerRunning(ctx)
	if err != nil {
		return false, err
	}
	if running {
		utils.PrintNote("server is already running!")
		return false, nil
	}

	host := ""
	if domain != "" {
		res, err := c.run(ctx, "hostname", "hostname")
		if err != nil {
			return false, fmt.Errorf("unable to get the hostname: %w", err)
		}
		host = strings.TrimSpace(res.Stdout) + "." + strings.TrimPrefix(domain, ".")
	}

	command := c.StartCommand(host)
	c.debugCommand(command)
	if _, err := c.run(ctx, "server start", command); err != nil {
		return false, fmt.Errorf("unable to start the server: %w", err)
	}

	if err := c.waitForServer(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) waitForServer(ctx context.Context) error {
	wait := c.ServerWait
	if wait <= 0 {
		wait = DefaultServerWait
	}
	deadline := time.Now().Add(wait)
	interval := wait / 20
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	for {
		running, err := c.ServerRunning(ctx)
		if err != nil {
			return err
		}
		if running {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not come up within %s, see $HOME/%s", wait, ServerStderr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// StopServer stops a running server and returns whether one was running.
// Stopping the server also closes all its allocations.
func (c *Client) StopServer(ctx context.Context) (bool, error) {
	running, err := c.ServerRunning(ctx)
	if err != nil {
		return false, err
	}
	if !running {
		utils.PrintNote("server is not running!")
		return false, nil
	}

	utils.PrintNote("Stopping the hq server will close all allocations.")
	if _, err := c.run(ctx, "server stop", c.bin+" server stop"); err != nil {
		return false, fmt.Errorf("unable to stop the server: %w", err)
	}
	return true, nil
}

// RestartServer stops the server if it runs and starts it again.
func (c *Client) RestartServer(ctx context.Context, domain string) error {
	if _, err := c.StopServer(ctx); err != nil {
		return err
	}
	_, err := c.StartServer(ctx, domain)
	return err
}
