package config

import (
	"time"

	"github.com/Justype/hqadapter/internal/events"
	"github.com/Justype/hqadapter/internal/hq"
	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/transport"
)

const VERSION = "0.3.0"

// InstallConfig holds defaults for `hqadapter install`.
type InstallConfig struct {
	Version     string
	BinDir      string
	WriteBashrc bool
}

// Config holds global application settings
type Config struct {
	Debug         bool
	Version       string
	HQBin         string // hq binary on the target host
	HQVersion     string // Known hq version; selects version dependent flags
	WorkDir       string // Remote directory receiving job scripts
	CompactFilter string // Shell filter compacting `hq job info` JSON

	Transport     transport.Config
	Nats          events.NatsConfig
	WatchInterval time.Duration
	Install       InstallConfig
}

// Global holds the singleton configuration instance
var Global Config

// LoadDefaults resets Global to built-in defaults.
func LoadDefaults() {
	Global = Defaults()
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Debug:         false,
		Version:       VERSION,
		HQBin:         scheduler.DefaultBinary,
		HQVersion:     "",
		WorkDir:       "",
		CompactFilter: scheduler.DefaultCompactFilter,
		Transport: transport.Config{
			Type:    transport.TypeLocal,
			Port:    22,
			Timeout: 30 * time.Second,
		},
		Nats: events.NatsConfig{
			Subject: events.DefaultSubject,
		},
		WatchInterval: 30 * time.Second,
		Install: InstallConfig{
			Version:     hq.DefaultVersion,
			BinDir:      hq.DefaultBinDir,
			WriteBashrc: true,
		},
	}
}

// SchedulerOptions returns the options for building the HyperQueue scheduler.
func (c Config) SchedulerOptions() scheduler.HyperQueueOptions {
	return scheduler.HyperQueueOptions{
		Binary:        c.HQBin,
		Version:       c.HQVersion,
		CompactFilter: c.CompactFilter,
	}
}
