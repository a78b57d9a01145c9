package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/transport"
	"github.com/Justype/hqadapter/internal/utils"
)

var (
	showPath  bool
	initForce bool
)

// configKeys is the list of known configuration keys for shell completion
var configKeys = []string{
	"hq_bin",
	"hq_version",
	"work_dir",
	"json_compact_filter",
	"transport.type",
	"transport.host",
	"transport.port",
	"transport.user",
	"transport.key_file",
	"transport.known_hosts",
	"transport.insecure_skip_host_key",
	"transport.timeout",
	"nats.url",
	"nats.subject",
	"nats.user",
	"nats.password",
	"nats.creds_file",
	"watch.interval",
	"install.version",
	"install.bin_dir",
	"install.write_bashrc",
}

// durationKeys accept the formats of utils.ParseDuration.
var durationKeys = map[string]bool{
	"transport.timeout": true,
	"watch.interval":    true,
}

// configKeysCompletion returns config keys for shell completion
func configKeysCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		// First arg: complete config keys
		return configKeys, cobra.ShellCompDirectiveNoFileComp
	}
	if len(args) == 1 {
		// Second arg: complete values based on the key
		return configValueCompletion(args[0]), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletion returns suggested values for a config key
func configValueCompletion(key string) []string {
	switch key {
	case "transport.type":
		return []string{transport.TypeLocal, transport.TypeSSH}
	case "transport.insecure_skip_host_key", "install.write_bashrc":
		return []string{"true", "false"}
	case "watch.interval":
		return []string{"10s", "30s", "1m", "5m"}
	case "transport.timeout":
		return []string{"10s", "30s", "1m"}
	case "hq_version", "install.version":
		return []string{"0.19.0", "0.18.0", "0.12.0"}
	default:
		return nil
	}
}

// getConfigEnvVars returns the environment variables overriding configKeys, sorted.
func getConfigEnvVars() []string {
	vars := make([]string, 0, len(configKeys))
	for _, key := range configKeys {
		vars = append(vars, config.EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	sort.Strings(vars)
	return vars
}

// validateConfigValue rejects values LoadFromViper or the scheduler would refuse.
func validateConfigValue(key, value string) error {
	switch {
	case durationKeys[key]:
		if _, err := utils.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration format: %s", value)
		}
	case key == "transport.type":
		if value != transport.TypeLocal && value != transport.TypeSSH {
			return fmt.Errorf("transport.type must be %q or %q", transport.TypeLocal, transport.TypeSSH)
		}
	case key == "hq_version" || key == "install.version":
		if _, err := scheduler.CanonicalVersion(value); err != nil {
			return err
		}
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hqadapter configuration",
	Long: `Manage hqadapter configuration settings.

Configuration file priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (HQADAPTER_*)
  3. User config file (~/.config/hqadapter/config.yaml)
  4. Home config file (~/.hqadapter/config.yaml)
  5. System config file (/etc/hqadapter/config.yaml)
  6. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if showPath {
			printConfigPath(cmd)
			return
		}

		fmt.Fprintln(w, utils.StyleTitle("Config File:"))
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(w, "  %s %s\n", used, utils.StyleSuccess("← in use"))
		} else {
			fmt.Fprintf(w, "  %s (use 'hqadapter config init' to create)\n", utils.StyleWarning("No config file found"))
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, utils.StyleTitle("Current Configuration:"))
		for _, key := range configKeys {
			value := viper.GetString(key)
			if key == "nats.password" && value != "" {
				value = "********"
			}
			fmt.Fprintf(w, "  %-34s %s\n", key+":", value)
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, utils.StyleTitle("Environment Variable Overrides:"))
		hasEnvOverrides := false
		for _, envVar := range getConfigEnvVars() {
			if val := os.Getenv(envVar); val != "" {
				fmt.Fprintf(w, "  %s=%s\n", envVar, val)
				hasEnvOverrides = true
			}
		}
		if !hasEnvOverrides {
			fmt.Fprintf(w, "  %s\n", utils.StyleInfo("none"))
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the user config file path",
	Run: func(cmd *cobra.Command, args []string) {
		printConfigPath(cmd)
	},
}

func printConfigPath(cmd *cobra.Command) {
	configPath, err := config.GetUserConfigPath()
	if err != nil {
		utils.PrintError("Failed to get config path: %v", err)
		os.Exit(1)
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  hqadapter config get hq_bin
  hqadapter config get transport.host`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: configKeysCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := viper.Get(key)
		if value == nil {
			utils.PrintError("Unknown config key: %s", key)
			os.Exit(1)
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save to the user config file.

Examples:
  hqadapter config set transport.type ssh
  hqadapter config set transport.host login1.cluster.org
  hqadapter config set hq_version 0.19.0
  hqadapter config set watch.interval 1m

Time duration format (for watch.interval, transport.timeout):
  Go style:  2h, 30m, 1h30m, 90s
  HPC style: 02:00:00, 2:30:00, 1:30 (HH:MM:SS or HH:MM)`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: configKeysCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		known := false
		for _, k := range configKeys {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			utils.PrintWarning("Warning: '%s' is not a standard config key", key)
		}

		if err := validateConfigValue(key, value); err != nil {
			utils.PrintError("%v", err)
			if durationKeys[key] {
				utils.PrintHint("Use format like: 30s, 1m, 1h30m, or 00:01:00")
			}
			os.Exit(1)
		}

		// Set the value
		viper.Set(key, value)

		// Save to config file
		if err := config.SaveConfig(); err != nil {
			utils.PrintError("Failed to save config: %v", err)
			os.Exit(1)
		}

		configPath, _ := config.GetUserConfigPath()
		utils.PrintSuccess("Set %s = %s", utils.StyleInfo(key), utils.StyleInfo(value))
		utils.PrintNote("Config saved to: %s", configPath)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a user config file with defaults",
	Long: `Create ~/.config/hqadapter/config.yaml holding every setting with its current
value. A local hq binary found on PATH or in ~/bin is recorded as hq_bin.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			utils.PrintError("Failed to get config path: %v", err)
			os.Exit(1)
		}

		// Check if config already exists
		if utils.FileExists(configPath) && !initForce {
			utils.PrintWarning("Config file already exists: %s", configPath)
			if !utils.IsInteractiveShell() {
				utils.PrintHint("Use --force to overwrite it")
				os.Exit(1)
			}
			fmt.Print("Overwrite? [y/N]: ")
			var response string
			fmt.Scanln(&response)
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				utils.PrintNote("Cancelled")
				return
			}
		}

		if config.Global.Transport.Type == transport.TypeLocal {
			if bin := config.DetectHQBin(); bin != "" {
				viper.Set("hq_bin", bin)
				utils.PrintNote("Detected hq at %s", utils.StylePath(bin))
			} else {
				utils.PrintHint("hq not found locally, run 'hqadapter install' to get it")
			}
		}

		if err := config.SaveConfigTo(configPath); err != nil {
			utils.PrintError("Failed to save config: %v", err)
			os.Exit(1)
		}
		utils.PrintSuccess("Config file created")
		fmt.Fprintf(cmd.OutOrStdout(), "  Location: %s\n", utils.StylePath(configPath))
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config file in default editor",
	Long:  "Open the configuration file in your default text editor ($EDITOR)",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			utils.PrintError("Failed to get config path: %v", err)
			os.Exit(1)
		}

		// Create config if it doesn't exist
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			utils.PrintNote("Config file doesn't exist, creating it first...")
			if err := config.SaveConfig(); err != nil {
				utils.PrintError("Failed to create config: %v", err)
				os.Exit(1)
			}
		}

		// Get editor from environment
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi" // fallback to vi
		}

		// Open editor
		editorCmd := exec.Command(editor, configPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr

		if err := editorCmd.Run(); err != nil {
			utils.PrintError("Failed to open editor: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	// Add flags
	configShowCmd.Flags().BoolVar(&showPath, "path", false, "Show only the config file path")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file without asking")

	// Add subcommands
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)

	// Add to root command
	rootCmd.AddCommand(configCmd)
}
