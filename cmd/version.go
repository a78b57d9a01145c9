package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/scheduler"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hqadapter version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "hqadapter %s (%s/%s)\n", config.VERSION, runtime.GOOS, runtime.GOARCH)
		hqVersion := config.Global.HQVersion
		if hqVersion == "" {
			hqVersion = "unset"
		} else if v, err := scheduler.CanonicalVersion(hqVersion); err == nil {
			hqVersion = v
		}
		fmt.Fprintf(w, "hq_version: %s\n", hqVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
