package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

func TestLocalExec(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	tests := []struct {
		name       string
		command    string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "stdout", command: "echo hello", wantStdout: "hello\n"},
		{name: "stderr", command: "echo oops >&2", wantStderr: "oops\n"},
		{name: "exit code", command: "exit 3", wantCode: 3},
		{name: "pipe", command: "printf 'a\\nb\\n' | wc -l | tr -d ' '", wantStdout: "2\n"},
		{name: "and chain", command: "true && echo ok", wantStdout: "ok\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := l.Exec(ctx, tt.command)
			if err != nil {
				t.Fatalf("Exec(%q) error: %v", tt.command, err)
			}
			if res.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d; want %d", res.ExitCode, tt.wantCode)
			}
			if res.Stdout != tt.wantStdout {
				t.Errorf("Stdout = %q; want %q", res.Stdout, tt.wantStdout)
			}
			if res.Stderr != tt.wantStderr {
				t.Errorf("Stderr = %q; want %q", res.Stderr, tt.wantStderr)
			}
		})
	}
}

func TestLocalExecCancelled(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := l.Exec(ctx, "sleep 5"); err == nil {
		t.Error("Exec() of an interrupted command returned no error")
	}
}

func TestLocalWriteFile(t *testing.T) {
	l := NewLocal()
	path := filepath.Join(t.TempDir(), "nested", "dir", "job.sh")

	if err := l.WriteFile(context.Background(), path, []byte("#!/bin/bash\n"), 0755); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/bash\n" {
		t.Errorf("content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v; want 0755", info.Mode().Perm())
	}
}

func TestNew(t *testing.T) {
	tr, err := New(Config{})
	if err != nil {
		t.Fatalf("New(default) error: %v", err)
	}
	if _, ok := tr.(*Local); !ok {
		t.Errorf("New(default) = %T; want *Local", tr)
	}

	_, err = New(Config{Type: "telnet"})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("New(telnet) error = %v; want ErrUnsupportedType", err)
	}
}

func writeTestKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewSSH(t *testing.T) {
	key := writeTestKey(t)

	t.Run("needs host", func(t *testing.T) {
		if _, err := NewSSH(Config{Type: TypeSSH, KeyFile: key}); err == nil {
			t.Error("NewSSH() without host succeeded")
		}
	})

	t.Run("missing key file", func(t *testing.T) {
		_, err := NewSSH(Config{Host: "login", User: "u", KeyFile: filepath.Join(t.TempDir(), "nope"), InsecureSkipHostKey: true})
		if err == nil || !strings.Contains(err.Error(), "could not read ssh key") {
			t.Errorf("error = %v; want a key read error", err)
		}
	})

	t.Run("missing known hosts", func(t *testing.T) {
		_, err := NewSSH(Config{Host: "login", User: "u", KeyFile: key, KnownHosts: filepath.Join(t.TempDir(), "known_hosts")})
		if err == nil || !strings.Contains(err.Error(), "known hosts") {
			t.Errorf("error = %v; want a known hosts error", err)
		}
	})

	t.Run("configured lazily", func(t *testing.T) {
		known := filepath.Join(t.TempDir(), "known_hosts")
		if err := os.WriteFile(known, nil, 0600); err != nil {
			t.Fatal(err)
		}
		s, err := NewSSH(Config{Host: "login.example.org", Port: 2222, User: "u", KeyFile: key, KnownHosts: known})
		if err != nil {
			t.Fatalf("NewSSH() error: %v", err)
		}
		if s.addr != "login.example.org:2222" {
			t.Errorf("addr = %q", s.addr)
		}
		if s.client != nil {
			t.Error("NewSSH() connected eagerly")
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
}
