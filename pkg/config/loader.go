// Package config fills typed configuration structs from the process
// environment via caarlos0/env tags.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables. Fields declare their
// variable with an `env` tag and may carry an `envDefault`; tags marked
// required cause an error when the variable is unset.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("load environment config: %w", err)
	}
	return nil
}
