package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Justype/hqadapter/internal/utils"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// EnvPrefix prefixes environment overrides, e.g. HQADAPTER_HQ_BIN.
const EnvPrefix = "HQADAPTER"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (HQADAPTER_*)
// 3. User config file (~/.config/hqadapter/config.yaml)
// 4. System config file (/etc/hqadapter/config.yaml)
// 5. Defaults
func InitViper() error {
	viper.SetConfigName(ConfigFilename)
	viper.SetConfigType(ConfigType)

	// Set config search paths (order matters)
	// User config (highest priority)
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(userConfigDir, "hqadapter"))
	}

	// Home directory fallback
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".hqadapter"))
	}

	// System-wide config (lower priority)
	viper.AddConfigPath("/etc/hqadapter")

	// Current directory (for development)
	viper.AddConfigPath(".")

	// Environment variables; nested keys use "_" (HQADAPTER_TRANSPORT_HOST)
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults (lowest priority)
	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; will use defaults
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for all config keys
func setDefaults() {
	d := Defaults()

	viper.SetDefault("hq_bin", d.HQBin)
	viper.SetDefault("hq_version", d.HQVersion)
	viper.SetDefault("work_dir", d.WorkDir)
	viper.SetDefault("json_compact_filter", d.CompactFilter)

	// Transport defaults
	viper.SetDefault("transport.type", d.Transport.Type)
	viper.SetDefault("transport.host", "")
	viper.SetDefault("transport.port", d.Transport.Port)
	viper.SetDefault("transport.user", "")
	viper.SetDefault("transport.key_file", "")
	viper.SetDefault("transport.known_hosts", "")
	viper.SetDefault("transport.insecure_skip_host_key", false)
	viper.SetDefault("transport.timeout", d.Transport.Timeout.String())

	// Event publishing defaults
	viper.SetDefault("nats.url", "")
	viper.SetDefault("nats.subject", d.Nats.Subject)
	viper.SetDefault("nats.user", "")
	viper.SetDefault("nats.password", "")
	viper.SetDefault("nats.creds_file", "")

	viper.SetDefault("watch.interval", d.WatchInterval.String())

	// Install defaults
	viper.SetDefault("install.version", d.Install.Version)
	viper.SetDefault("install.bin_dir", d.Install.BinDir)
	viper.SetDefault("install.write_bashrc", d.Install.WriteBashrc)
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".hqadapter", ConfigFilename+"."+ConfigType), nil
	}

	return filepath.Join(userConfigDir, "hqadapter", ConfigFilename+"."+ConfigType), nil
}

// SaveConfig saves current Viper config to user config file
func SaveConfig() error {
	configPath, err := GetUserConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveConfigTo(configPath)
}

// SaveConfigTo writes the current Viper config to configPath.
func SaveConfigTo(configPath string) error {
	// Create directory if it doesn't exist
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateBinary checks if a binary exists and is executable
func ValidateBinary(binPath string) bool {
	if binPath == "" {
		return false
	}

	// If it's a full path, check directly
	if filepath.IsAbs(binPath) {
		info, err := os.Stat(binPath)
		if err != nil {
			return false
		}
		// Check if it's executable (unix-style check)
		return info.Mode()&0111 != 0
	}

	// Otherwise, try to find it in PATH
	_, err := exec.LookPath(binPath)
	return err == nil
}

// DetectHQBin returns the absolute path of hq on this machine, or "".
// Only meaningful for the local transport.
func DetectHQBin() string {
	if path, err := exec.LookPath("hq"); err == nil {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, "bin", "hq")
		if ValidateBinary(candidate) {
			return candidate
		}
	}
	return ""
}

// LoadFromViper loads config from Viper into Global struct
func LoadFromViper() error {
	if bin := viper.GetString("hq_bin"); bin != "" {
		Global.HQBin = bin
	}
	Global.HQVersion = viper.GetString("hq_version")
	Global.WorkDir = viper.GetString("work_dir")
	if filter := viper.GetString("json_compact_filter"); filter != "" {
		Global.CompactFilter = filter
	}

	Global.Transport.Type = strings.ToLower(viper.GetString("transport.type"))
	Global.Transport.Host = viper.GetString("transport.host")
	Global.Transport.Port = viper.GetInt("transport.port")
	Global.Transport.User = viper.GetString("transport.user")
	Global.Transport.KeyFile = viper.GetString("transport.key_file")
	Global.Transport.KnownHosts = viper.GetString("transport.known_hosts")
	Global.Transport.InsecureSkipHostKey = viper.GetBool("transport.insecure_skip_host_key")
	if timeout := viper.GetString("transport.timeout"); timeout != "" {
		dur, err := utils.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("transport.timeout: %w", err)
		}
		Global.Transport.Timeout = dur
	}

	Global.Nats.URL = viper.GetString("nats.url")
	Global.Nats.Subject = viper.GetString("nats.subject")
	Global.Nats.User = viper.GetString("nats.user")
	Global.Nats.Password = viper.GetString("nats.password")
	Global.Nats.CredsFile = viper.GetString("nats.creds_file")

	if interval := viper.GetString("watch.interval"); interval != "" {
		dur, err := utils.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("watch.interval: %w", err)
		}
		Global.WatchInterval = dur
	}

	Global.Install.Version = viper.GetString("install.version")
	Global.Install.BinDir = viper.GetString("install.bin_dir")
	Global.Install.WriteBashrc = viper.GetBool("install.write_bashrc")

	return nil
}

// GetUserStateDir returns the directory for runtime state such as the job
// journal: $XDG_STATE_HOME/hqadapter, falling back to ~/.local/state/hqadapter.
func GetUserStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "hqadapter")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "hqadapter")
}
