package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/hq"
	"github.com/Justype/hqadapter/internal/utils"
)

var (
	installVersion    string
	installBinDir     string
	installNoBashrc   bool
	installReleaseURL string
	installSave       bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the hq binary on the target host",
	Long: `Download an hq release from GitHub, upload the binary into the bin directory
of the target host and add that directory to PATH in ~/.bashrc.

The bin directory is expanded by the remote shell, so $HOME refers to the
remote home. Versions before 0.13 lack --no-hyper-threading; set hq_version
so allocations use the older flag.`,
	Example: `  hqadapter install
  hqadapter --host login1 install --version 0.19.0 --bin-dir '$HOME/.local/bin'
  hqadapter install --save   # Remember hq_bin and hq_version in the config`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runInstall,
}

func init() {
	f := installCmd.Flags()
	f.StringVar(&installVersion, "version", "", "hq version to install (default: install.version)")
	f.StringVar(&installBinDir, "bin-dir", "", "Bin directory on the target host (default: install.bin_dir)")
	f.BoolVar(&installNoBashrc, "no-bashrc", false, "Do not touch ~/.bashrc")
	f.StringVar(&installReleaseURL, "release-url", hq.DefaultReleaseURL, "Base URL of hq releases")
	f.BoolVar(&installSave, "save", false, "Save the installed binary and version to the user config")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	opts := hq.InstallOptions{
		Version:     config.Global.Install.Version,
		BinDir:      config.Global.Install.BinDir,
		WriteBashrc: config.Global.Install.WriteBashrc && !installNoBashrc,
		ReleaseURL:  installReleaseURL,
	}
	if installVersion != "" {
		opts.Version = installVersion
	}
	if installBinDir != "" {
		opts.BinDir = installBinDir
	}
	if opts.Version == "" {
		opts.Version = hq.DefaultVersion
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	remoteBin, err := s.client.Install(ctx, opts)
	if err != nil {
		return err
	}
	utils.PrintSuccess("hq installed to %s", utils.StylePath(remoteBin))

	if installSave {
		viper.Set("hq_bin", remoteBin)
		viper.Set("hq_version", opts.Version)
		if err := config.SaveConfig(); err != nil {
			return err
		}
		configPath, _ := config.GetUserConfigPath()
		utils.PrintNote("hq_bin and hq_version saved to: %s", configPath)
	} else if !opts.WriteBashrc {
		utils.PrintHint("Add the bin directory to PATH or set hq_bin to %s", remoteBin)
	}
	return nil
}
