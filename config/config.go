// Package config reads the settings of a device profile test run.
//
// Every setting comes from a DEVICE_PROFILE_ prefixed environment variable.
// Variables may also be given in an env file (DEVICE_PROFILE_ENV_FILE, default
// ".env"); variables already set in the process win over the file.
//
//	┌──────────────────────────────┬────────────┬─────────────────────────────────────────┐
//	│ Variable                     │ Default    │ Description                             │
//	├──────────────────────────────┼────────────┼─────────────────────────────────────────┤
//	│ DEVICE_PROFILE_YAML_PATH     │ ""         │ Device profiles file (read by Resolver) │
//	│ DEVICE_PROFILE_STRICT        │ false      │ Fail instead of using the bundled file  │
//	│ DEVICE_PROFILE_BACKEND       │ "selenium" │ Driver backend: "selenium" or "rod"     │
//	│ DEVICE_PROFILE_HEADLESS      │ false      │ Force headless browsers                 │
//	│ DEVICE_PROFILE_OVERRIDES     │ ""         │ ";" separated capability path=value     │
//	│ DEVICE_PROFILE_LOG_LEVEL     │ "info"     │ debug, info, warn or error              │
//	│ DEVICE_PROFILE_BASE_URL      │ ""         │ Site under test for the e2e suites      │
//	└──────────────────────────────┴────────────┴─────────────────────────────────────────┘
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/padaiyal/multidevice/profiles"
	"github.com/padaiyal/multidevice/webdriver"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvPrefix = "DEVICE_PROFILE"

const DefaultEnvFile = ".env"

const DefaultLogLevel = "info"

type Settings struct {
	ProfilesPath string
	Strict       bool
	Backend      string
	Headless     bool
	Overrides    []string
	LogLevel     string
	BaseURL      string
}

// NewViper returns a viper instance bound to the DEVICE_PROFILE_ variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("yaml_path", "")
	v.SetDefault("strict", false)
	v.SetDefault("backend", webdriver.BackendSelenium)
	v.SetDefault("headless", false)
	v.SetDefault("overrides", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("base_url", "")
	return v
}

// LoadEnvFile loads path, or DEVICE_PROFILE_ENV_FILE, or ".env" when path is
// empty. A missing default file is not an error; a missing named file is.
func LoadEnvFile(path string) error {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_ENV_FILE")
	}
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Load reads the settings from v, which should come from NewViper.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		ProfilesPath: v.GetString("yaml_path"),
		Strict:       v.GetBool("strict"),
		Backend:      strings.ToLower(v.GetString("backend")),
		Headless:     v.GetBool("headless"),
		Overrides:    splitOverrides(v.GetString("overrides")),
		LogLevel:     strings.ToLower(v.GetString("log_level")),
		BaseURL:      v.GetString("base_url"),
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	switch s.Backend {
	case webdriver.BackendSelenium, webdriver.BackendRod:
	default:
		return fmt.Errorf("invalid backend %q: must be '%s' or '%s'", s.Backend, webdriver.BackendSelenium, webdriver.BackendRod)
	}
	if _, err := zap.ParseAtomicLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	for _, override := range s.Overrides {
		if path, _, ok := strings.Cut(override, "="); !ok || strings.TrimSpace(path) == "" {
			return fmt.Errorf("invalid override %q: expected path=value", override)
		}
	}
	return nil
}

// Resolver returns a profiles resolver for these settings. Path is left empty
// so the resolver reads DEVICE_PROFILE_YAML_PATH and applies its relative path rules.
func (s Settings) Resolver(logger *zap.Logger) *profiles.Resolver {
	return &profiles.Resolver{Strict: s.Strict, Logger: logger}
}

func (s Settings) DriverOptions() webdriver.Options {
	return webdriver.Options{Headless: s.Headless, Overrides: s.Overrides}
}

func splitOverrides(raw string) []string {
	var overrides []string
	for _, override := range strings.Split(raw, ";") {
		if override = strings.TrimSpace(override); override != "" {
			overrides = append(overrides, override)
		}
	}
	return overrides
}
