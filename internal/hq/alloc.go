package hq

import (
	"context"
	"fmt"
	"strings"

	"github.com/Justype/hqadapter/internal/utils"
)

// DefaultAllocName labels allocation queues created by this tool.
const DefaultAllocName = "ahq"

// AllocOptions describes an automatic allocation queue on Slurm.
type AllocOptions struct {
	TimeLimit       string   // Wall time of each allocation, e.g. "2h" or "01:00:00"
	Backlog         int      // Allocations kept waiting in Slurm
	WorkersPerAlloc int      // Workers (nodes) per allocation
	HyperThreading  bool     // Let hq schedule onto hyperthreads
	Name            string   // Queue name (DefaultAllocName if empty)
	SlurmOptions    []string // Passed to sbatch after "--"
}

// AllocAddCommand builds `hq alloc add slurm ...` for opts.
// Time limits parsable as durations are normalized to HH:MM:SS; anything
// else is handed to hq untouched.
func (c *Client) AllocAddCommand(opts AllocOptions) (string, error) {
	if strings.TrimSpace(opts.TimeLimit) == "" {
		return "", fmt.Errorf("allocation time limit is required")
	}
	if opts.Backlog < 1 {
		return "", fmt.Errorf("backlog must be at least 1, got %d", opts.Backlog)
	}
	if opts.WorkersPerAlloc < 1 {
		return "", fmt.Errorf("workers per allocation must be at least 1, got %d", opts.WorkersPerAlloc)
	}

	timeLimit := strings.TrimSpace(opts.TimeLimit)
	if d, err := utils.ParseDuration(timeLimit); err == nil {
		timeLimit = utils.FormatHMS(d)
	} else {
		utils.PrintDebug("passing time limit %q to hq as is", timeLimit)
	}

	name := opts.Name
	if name == "" {
		name = DefaultAllocName
	}

	parts := []string{
		c.bin, "alloc", "add", "slurm",
		"--backlog", fmt.Sprint(opts.Backlog),
		"--time-limit", utils.ShellQuote(timeLimit),
		"--name", utils.ShellQuote(name),
	}
	if !opts.HyperThreading {
		if c.caps.NoHyperThreadingFlag {
			parts = append(parts, "--no-hyper-threading")
		} else {
			parts = append(parts, "--cpus", "no-ht")
		}
	}
	parts = append(parts, "--workers-per-alloc", fmt.Sprint(opts.WorkersPerAlloc), "--")
	for _, o := range opts.SlurmOptions {
		parts = append(parts, utils.ShellQuote(o))
	}
	return strings.Join(parts, " "), nil
}

// AllocAdd creates an allocation queue and returns hq's confirmation.
func (c *Client) AllocAdd(ctx context.Context, opts AllocOptions) (string, error) {
	command, err := c.AllocAddCommand(opts)
	if err != nil {
		return "", err
	}
	c.debugCommand(command)
	res, err := c.run(ctx, "alloc add", command)
	if err != nil {
		return "", fmt.Errorf("failed to create new allocation: %w", err)
	}
	return message(res), nil
}

// AllocList returns the table printed by `hq alloc list`.
func (c *Client) AllocList(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "alloc list", c.bin+" alloc list")
	if err != nil {
		return "", fmt.Errorf("failed to list allocations: %w", err)
	}
	return res.Stdout, nil
}

// AllocRemove removes the allocation queue allocID.
func (c *Client) AllocRemove(ctx context.Context, allocID string) (string, error) {
	if strings.TrimSpace(allocID) == "" {
		return "", fmt.Errorf("allocation id is required")
	}
	res, err := c.run(ctx, "alloc remove", fmt.Sprintf("%s alloc remove %s", c.bin, utils.ShellQuote(allocID)))
	if err != nil {
		return "", fmt.Errorf("failed to remove allocation: %w", err)
	}
	return message(res), nil
}
