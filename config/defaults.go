package config

import "time"

const defaultRequestTimeout = 5 * time.Minute

// DefaultConfig returns the configuration used when a field is absent from
// the config file.
func DefaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			RequestTimeout: "5m",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "hubchat.log",
		},
	}
}
