// Package transport executes shell commands and writes files on the host that
// runs the hq server, either the local machine or a login node over SSH.
package transport

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Supported transport types.
const (
	TypeLocal = "local"
	TypeSSH   = "ssh"
)

// ErrUnsupportedType is returned by New for an unknown transport type.
var ErrUnsupportedType = errors.New("unsupported transport type")

// Result is the outcome of one command. A non-zero ExitCode is a normal
// result, not an error; interpreting it is up to the caller.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Transport runs commands through `bash -c` semantics (pipes and `&&` work)
// and places files on the target host.
type Transport interface {
	// Exec runs command and waits for it. The error is non-nil only when the
	// command could not be run or waited for at all.
	Exec(ctx context.Context, command string) (*Result, error)

	// WriteFile creates or replaces path with data, creating parent directories.
	WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error

	// Close releases any connection held by the transport.
	Close() error
}

// Config selects and configures a transport.
type Config struct {
	Type                string        // "local" or "ssh"
	Host                string        // SSH host
	Port                int           // SSH port (22 if zero)
	User                string        // SSH user (current user if empty)
	KeyFile             string        // Private key for SSH auth
	KnownHosts          string        // known_hosts file (~/.ssh/known_hosts if empty)
	InsecureSkipHostKey bool          // Accept any host key
	Timeout             time.Duration // Dial timeout for SSH
}

// New returns the transport described by cfg.
func New(cfg Config) (Transport, error) {
	switch cfg.Type {
	case "", TypeLocal:
		return NewLocal(), nil
	case TypeSSH:
		return NewSSH(cfg)
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%q", cfg.Type)
	}
}
