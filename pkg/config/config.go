// Package config loads the sim-card tool configuration.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport kinds.
const (
	TransportPCSC = "pcsc"
	TransportAT   = "at"
)

// Card generations.
const (
	Generation2G = "2g"
	Generation3G = "3g"
)

// Dumpable files.
const (
	DumpICCID  = "iccid"
	DumpIMSI   = "imsi"
	DumpSPN    = "spn"
	DumpSPDI   = "spdi"
	DumpEONS   = "eons"
	DumpADN    = "adn"
	DumpMSISDN = "msisdn"
	DumpDir    = "dir"
)

var dumpFiles = []string{DumpICCID, DumpIMSI, DumpSPN, DumpSPDI, DumpEONS, DumpADN, DumpMSISDN, DumpDir}

// Config holds the application configuration
type Config struct {
	Transport TransportConfig
	Card      CardConfig
	Dump      DumpConfig
	Log       LogConfig
}

// TransportConfig selects how APDUs reach the card
type TransportConfig struct {
	Kind string
	PCSC PCSCConfig
	AT   ATConfig
}

// PCSCConfig holds the PC/SC reader selection
type PCSCConfig struct {
	Reader int // index in the reader list
}

// ATConfig holds the modem serial settings used for AT+CSIM
type ATConfig struct {
	Device  string
	Baud    int
	Timeout time.Duration
	Trace   bool
}

// CardConfig describes the inserted card
type CardConfig struct {
	Generation string
}

// DumpConfig lists the files the dump command reads
type DumpConfig struct {
	Files []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string // "debug", "info", "warn", "error"
}

// Load loads configuration from file and environment variables
// Priority order (highest to lowest):
// 1. Environment variables (prefixed with SIMCARD_)
// 2. Config file specified by configPath
// 3. sim-card.yaml in standard paths
// 4. Hardcoded defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("sim-card")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sim-card")
	}

	v.SetEnvPrefix("SIMCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The environment gives lists as one string, e.g. "iccid, EONS".
	config.Dump.Files = splitList(v.GetStringSlice("dump.files"))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, f := range strings.Split(item, ",") {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.kind", TransportPCSC)
	v.SetDefault("transport.pcsc.reader", 0)
	v.SetDefault("transport.at.device", "/dev/ttyUSB2")
	v.SetDefault("transport.at.baud", 115200)
	v.SetDefault("transport.at.timeout", "5s")
	v.SetDefault("transport.at.trace", false)

	v.SetDefault("card.generation", Generation2G)

	v.SetDefault("dump.files", []string{DumpICCID, DumpSPN, DumpSPDI, DumpEONS})

	v.SetDefault("log.level", "info")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport config: %w", err)
	}
	if err := c.Card.Validate(); err != nil {
		return fmt.Errorf("card config: %w", err)
	}
	if err := c.Dump.Validate(); err != nil {
		return fmt.Errorf("dump config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

// Validate validates the TransportConfig
func (c *TransportConfig) Validate() error {
	switch c.Kind {
	case TransportPCSC:
		if c.PCSC.Reader < 0 {
			return fmt.Errorf("pcsc.reader must be non-negative")
		}
	case TransportAT:
		if c.AT.Device == "" {
			return fmt.Errorf("at.device is required")
		}
		if c.AT.Baud < 1 {
			return fmt.Errorf("at.baud must be at least 1")
		}
		if c.AT.Timeout <= 0 {
			return fmt.Errorf("at.timeout must be positive")
		}
	default:
		return fmt.Errorf("unknown kind %q (want %s or %s)", c.Kind, TransportPCSC, TransportAT)
	}
	return nil
}

// Validate validates the CardConfig
func (c *CardConfig) Validate() error {
	if c.Generation != Generation2G && c.Generation != Generation3G {
		return fmt.Errorf("unknown generation %q (want %s or %s)", c.Generation, Generation2G, Generation3G)
	}
	return nil
}

// Validate validates the DumpConfig
func (c *DumpConfig) Validate() error {
	if len(c.Files) == 0 {
		return fmt.Errorf("files must not be empty")
	}
	for _, f := range c.Files {
		if !slices.Contains(dumpFiles, f) {
			return fmt.Errorf("unknown file %q (want one of %s)", f, strings.Join(dumpFiles, ", "))
		}
	}
	return nil
}

// Wants reports whether file is part of the dump.
func (c *DumpConfig) Wants(file string) bool {
	return slices.Contains(c.Files, file)
}

// Validate validates the LogConfig
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q", c.Level)
}
