package config

import (
	"os"
	"strconv"
	"strings"
)

// Default values for configuration.
const (
	DefaultSniffBytes       = 64 * 1024
	DefaultSniffMaxFileSize = 32 * 1024 * 1024
	DefaultMaxDataFileSize  = 256 * 1024 * 1024
	DefaultWorkers          = 1
)

// DefaultEncodings is the priority order inherited from the instrument
// exports seen in the field: UTF-8 first, then GBK, then Latin-1.
var DefaultEncodings = []string{"utf-8", "gbk", "latin-1"}

// Environment variable names.
const (
	EnvWorkers   = "KOSTERSCAN_WORKERS"
	EnvEncodings = "KOSTERSCAN_ENCODINGS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Encodings:        append([]string(nil), DefaultEncodings...),
		SniffBytes:       DefaultSniffBytes,
		SniffMaxFileSize: DefaultSniffMaxFileSize,
		MaxDataFileSize:  DefaultMaxDataFileSize,
		Workers:          DefaultWorkers,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvEncodings); v != "" {
		var encs []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				encs = append(encs, e)
			}
		}
		if len(encs) > 0 {
			c.Encodings = encs
		}
	}
}
