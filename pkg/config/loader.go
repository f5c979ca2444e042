package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Load populates the configuration struct from environment variables based
// on `env` field tags. The default .env file is loaded once per process
// before the first parse; a missing .env file is not an error.
//
// Example:
//
//	var cfg tenantconn.Config
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is a local development convenience only.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure. Use for configuration the
// process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
