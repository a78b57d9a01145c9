package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/Justype/hqadapter/internal/utils"
)

// SSH runs commands on a remote host over one shared SSH connection.
// Each command gets its own session; the connection is re-dialed when a
// session cannot be opened.
type SSH struct {
	addr   string
	user   string
	config *ssh.ClientConfig

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSH prepares an SSH transport. The connection is opened lazily.
func NewSSH(cfg Config) (*SSH, error) {
	if cfg.Host == "" {
		return nil, errors.New("ssh transport needs a host")
	}

	username := cfg.User
	if username == "" {
		u, err := user.Current()
		if err != nil {
			return nil, errors.Wrap(err, "could not determine the ssh user")
		}
		username = u.Username
	}

	auth, err := authMethods(cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SSH{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		user: username,
		config: &ssh.ClientConfig{
			User:            username,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
			Timeout:         timeout,
		},
	}, nil
}

func authMethods(keyFile string) ([]ssh.AuthMethod, error) {
	candidates := []string{keyFile}
	if keyFile == "" {
		candidates = []string{
			utils.ExpandHome("~/.ssh/id_ed25519"),
			utils.ExpandHome("~/.ssh/id_rsa"),
		}
	}

	var signers []ssh.Signer
	for _, p := range candidates {
		p = utils.ExpandHome(p)
		data, err := os.ReadFile(p)
		if err != nil {
			if keyFile != "" {
				return nil, errors.Wrapf(err, "could not read ssh key %s", p)
			}
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse ssh key %s", p)
		}
		signers = append(signers, signer)
	}
	if len(signers) == 0 {
		return nil, errors.New("no usable ssh private key found")
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signers...)}, nil
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.InsecureSkipHostKey {
		utils.PrintWarning("ssh host key verification is disabled for %s", cfg.Host)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	file := cfg.KnownHosts
	if file == "" {
		file = filepath.Join("~", ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(utils.ExpandHome(file))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load known hosts from %s", file)
	}
	return cb, nil
}

func (s *SSH) ensureConnected() (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	utils.PrintDebug("[ssh] Connecting to %s@%s", s.user, s.addr)
	client, err := ssh.Dial("tcp", s.addr, s.config)
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to %s@%s", s.user, s.addr)
	}
	s.client = client
	return client, nil
}

func (s *SSH) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

func (s *SSH) newSession() (*ssh.Session, error) {
	client, err := s.ensureConnected()
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err == nil {
		return session, nil
	}

	// The connection may have been dropped by the server; dial once more.
	s.reset()
	client, err = s.ensureConnected()
	if err != nil {
		return nil, errors.Wrap(err, "error reconnecting to ssh")
	}
	session, err = client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "error getting ssh session")
	}
	return session, nil
}

func (s *SSH) run(ctx context.Context, command string, stdin []byte) (*Result, error) {
	session, err := s.newSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		session.Close()
		return nil, errors.Wrap(ctx.Err(), "command interrupted")
	case err = <-done:
	}

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}
	return nil, errors.Wrapf(err, "could not run %q on %s", command, s.addr)
}

// Exec runs command in a new session. The remote login shell interprets it.
func (s *SSH) Exec(ctx context.Context, command string) (*Result, error) {
	utils.PrintDebug("[ssh %s] Running %s", s.addr, utils.StyleCommand(command))
	return s.run(ctx, command, nil)
}

// WriteFile streams data to path through `cat` on the remote side.
func (s *SSH) WriteFile(ctx context.Context, filePath string, data []byte, perm os.FileMode) error {
	q := utils.ShellQuote(filePath)
	command := fmt.Sprintf("mkdir -p %s && cat > %s && chmod %o %s",
		utils.ShellQuote(path.Dir(filePath)), q, perm.Perm(), q)

	utils.PrintDebug("[ssh %s] Writing %d bytes to %s", s.addr, len(data), filePath)
	res, err := s.run(ctx, command, data)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return errors.Errorf("could not write %s on %s (exit %d): %s", filePath, s.addr, res.ExitCode, res.Stderr)
	}
	return nil
}

// Close closes the underlying connection, if any.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
