package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// DriverArgsEnv carries JSON encoded driver arguments to code that builds its
// driver without an injection point.
const DriverArgsEnv = "DEVICE_PROFILE_DRIVER_ARGS"

// publishMu serialises WithPublished so a reader never observes another
// test's arguments.
var publishMu sync.Mutex

// Publish stores cfg in DriverArgsEnv. It must complete before the consumer
// reads the variable; use WithPublished to get that ordering in one call.
func Publish(cfg Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding driver arguments for profile %s: %w", cfg.Key, err)
	}
	return os.Setenv(DriverArgsEnv, string(raw))
}

// Published reads the driver arguments stored by Publish.
func Published() (Config, error) {
	raw, ok := os.LookupEnv(DriverArgsEnv)
	if !ok || raw == "" {
		return Config{}, ErrNotPublished
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding %s: %w", DriverArgsEnv, err)
	}
	cfg.Source = DriverArgsEnv
	return cfg, nil
}

// WithPublished publishes cfg, runs init while still holding the lock, and
// restores the previous value afterwards.
func WithPublished(cfg Config, init func() error) error {
	publishMu.Lock()
	defer publishMu.Unlock()

	previous, hadPrevious := os.LookupEnv(DriverArgsEnv)
	defer func() {
		if hadPrevious {
			_ = os.Setenv(DriverArgsEnv, previous)
		} else {
			_ = os.Unsetenv(DriverArgsEnv)
		}
	}()

	if err := Publish(cfg); err != nil {
		return err
	}
	return init()
}
