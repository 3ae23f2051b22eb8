package campus

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ConfigFromEnv loads configuration from CAMPUS_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("campus: failed to parse config: %w", err)
	}
	return cfg, nil
}
