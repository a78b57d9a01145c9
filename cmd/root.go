package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

var (
	debugMode bool
	quietMode bool
	hostFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "hqadapter",
	Short:         "hqadapter: render, submit and follow HyperQueue jobs on a local or remote host.",
	Version:       config.VERSION,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Built-in defaults
		config.LoadDefaults()

		// Step 2: Initialize Viper (read config file, env vars)
		if err := config.InitViper(); err != nil {
			return err
		}

		// Step 3: Load values from Viper into Global config
		if err := config.LoadFromViper(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// Step 4: Apply command-line flags (highest priority)
		if quietMode {
			utils.QuietMode = true
		}
		if hostFlag != "" {
			config.Global.Transport.Type = "ssh"
			config.Global.Transport.Host = hostFlag
		}
		if debugMode {
			utils.DebugMode = true
			config.Global.Debug = true
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("hqadapter Version: %s", utils.StyleInfo(config.VERSION))
			utils.PrintDebug("hq Binary: %s", config.Global.HQBin)
			if config.Global.HQVersion != "" {
				utils.PrintDebug("hq Version: %s", config.Global.HQVersion)
			}
			utils.PrintDebug("Transport: %s %s", config.Global.Transport.Type, config.Global.Transport.Host)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra's automatic error printing is silenced. For scheduler errors
		// print what hq said, for other errors the error string.
		var se *scheduler.SchedulerError
		if errors.As(err, &se) {
			utils.PrintError("hq %s: %v (exit %d)", se.Op, se.Err, se.ExitCode)
			if out := strings.TrimSpace(se.Stderr); out != "" {
				fmt.Fprintln(os.Stderr, out)
			} else if out := strings.TrimSpace(se.Stdout); out != "" {
				fmt.Fprintln(os.Stderr, out)
			}
			os.Exit(1)
		}
		utils.PrintError("%v", err)
		os.Exit(1)
	}
}

func init() {
	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Suppress informational messages")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Run hq on this host over SSH (overrides transport.host)")
}
