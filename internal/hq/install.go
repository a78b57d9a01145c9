package hq

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

// Install defaults.
const (
	DefaultVersion    = "0.19.0"
	DefaultBinDir     = "$HOME/bin"
	DefaultReleaseURL = "https://github.com/It4innovations/hyperqueue/releases/download"

	// BashrcMarker tags the PATH line written to ~/.bashrc so it is added once.
	BashrcMarker = "# by hqadapter"
)

// InstallOptions controls Install.
type InstallOptions struct {
	Version     string // hq release, e.g. "0.19.0" (DefaultVersion if empty)
	BinDir      string // Remote directory; shell variables are expanded remotely
	WriteBashrc bool   // Add BinDir to PATH in the remote ~/.bashrc
	ReleaseURL  string // Base release URL (DefaultReleaseURL if empty)
}

// ReleaseTarballURL returns the linux x64 release archive URL for version.
func ReleaseTarballURL(base, version string) string {
	if base == "" {
		base = DefaultReleaseURL
	}
	v := strings.TrimPrefix(version, "v")
	return fmt.Sprintf("%s/v%s/hq-v%s-linux-x64.tar.gz", strings.TrimSuffix(base, "/"), v, v)
}

// Install downloads an hq release locally, uploads the binary into BinDir on
// the target host and optionally puts BinDir on PATH. It returns the remote
// path of the installed binary.
func (c *Client) Install(ctx context.Context, opts InstallOptions) (string, error) {
	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}
	caps, err := scheduler.ResolveCapabilities(version)
	if err != nil {
		return "", err
	}
	if !caps.NoHyperThreadingFlag {
		utils.PrintWarning("You are installing hq version %s, which predates --no-hyper-threading (%s). "+
			"Set hq_version so alloc add uses --cpus no-ht, or install a newer version.",
			version, scheduler.MinNoHyperThreadingVersion)
	}

	url := ReleaseTarballURL(opts.ReleaseURL, version)
	if !utils.URLExists(ctx, url) {
		return "", fmt.Errorf("hq release %s not found at %s", version, url)
	}

	tmpDir, err := os.MkdirTemp("", "hqadapter-install-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	utils.PrintMessage("Downloading hq %s...", utils.StyleNumber(version))
	utils.PrintDebug("Download URL: %s", url)
	tarPath := filepath.Join(tmpDir, "hq.tar.gz")
	if err := utils.DownloadFile(ctx, url, tarPath); err != nil {
		return "", fmt.Errorf("cannot download hq, please check that version %s exists: %w", version, err)
	}

	binary, err := ExtractBinary(tarPath, "hq")
	if err != nil {
		return "", err
	}
	utils.PrintSuccess("The hq version %s binary downloaded.", version)

	binDir := opts.BinDir
	if binDir == "" {
		binDir = DefaultBinDir
	}
	// echo lets the remote shell expand $HOME and friends.
	res, err := c.run(ctx, "resolve bin dir", "echo "+binDir)
	if err != nil {
		return "", fmt.Errorf("not able to resolve remote bin dir %s: %w", binDir, err)
	}
	remoteDir := strings.TrimSpace(res.Stdout)
	if remoteDir == "" {
		return "", fmt.Errorf("remote bin dir %s expanded to an empty path", binDir)
	}
	remoteBin := path.Join(remoteDir, "hq")

	if exists, err := c.t.Exec(ctx, "test -f "+utils.ShellQuote(remoteBin)); err == nil && exists.ExitCode == 0 {
		utils.PrintNote("hq exists in %s on the remote, it will be overwritten.", remoteDir)
	}

	if err := c.t.WriteFile(ctx, remoteBin, binary, utils.PermScript); err != nil {
		return "", fmt.Errorf("failed to upload hq: %w", err)
	}

	if opts.WriteBashrc {
		command := fmt.Sprintf("grep -q %s ~/.bashrc || printf '%%s\\n' %s %s >> ~/.bashrc",
			utils.ShellQuote(BashrcMarker),
			utils.ShellQuote(BashrcMarker),
			utils.ShellQuote("export PATH="+remoteDir+":$PATH"))
		if _, err := c.run(ctx, "write bashrc", command); err != nil {
			return remoteBin, fmt.Errorf("not able to add %s to PATH in the remote bashrc, do it manually: %w", remoteDir, err)
		}
	}

	return remoteBin, nil
}

// ExtractBinary returns the content of the first regular file called name
// inside the gzipped tarball at tarPath.
func ExtractBinary(tarPath, name string) ([]byte, error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tarPath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", tarPath, err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != name {
			continue
		}
		return io.ReadAll(tr)
	}
	return nil, fmt.Errorf("%s not found in %s", name, tarPath)
}
