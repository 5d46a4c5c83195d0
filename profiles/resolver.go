package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"go.uber.org/zap"
)

const (
	// PathEnv names the device profiles YAML file.
	PathEnv = "DEVICE_PROFILE_YAML_PATH"
	// StrictEnv, when true, has the same effect as Resolver.Strict.
	StrictEnv = "DEVICE_PROFILE_STRICT"
	// DefaultFileName is the profiles file shipped at the repository root.
	DefaultFileName = "device_profiles.default.yaml"
)

// DefaultFallbackPath returns the bundled profiles file, located relative to
// this source file rather than the working directory. Binaries built with
// -trimpath record a module-relative source path, so the file is not found.
func DefaultFallbackPath() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return DefaultFileName
	}
	return filepath.Join(filepath.Dir(file), "..", DefaultFileName)
}

// Resolver locates the device profiles file and loads profiles from it.
// The zero value reads PathEnv and falls back to DefaultFallbackPath.
type Resolver struct {
	// Path, when set, is used instead of the environment variable.
	Path string
	// EnvVar overrides PathEnv.
	EnvVar string
	// FallbackPath overrides DefaultFallbackPath.
	FallbackPath string
	// Strict disables the fallback when a path was configured but does not
	// exist. StrictEnv set to true turns it on as well.
	Strict bool

	LookupEnv func(string) (string, bool)
	Getwd     func() (string, error)
	Logger    *zap.Logger
}

func (r *Resolver) envVar() string {
	if r.EnvVar != "" {
		return r.EnvVar
	}
	return PathEnv
}

func (r *Resolver) fallbackPath() string {
	if r.FallbackPath != "" {
		return r.FallbackPath
	}
	return DefaultFallbackPath()
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func (r *Resolver) lookupEnv(name string) string {
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, _ := lookup(name)
	return value
}

// configured returns the explicitly configured path, if any.
func (r *Resolver) configured() string {
	if r.Path != "" {
		return r.Path
	}
	return r.lookupEnv(r.envVar())
}

func (r *Resolver) strict() (bool, error) {
	if r.Strict {
		return true, nil
	}
	value := r.lookupEnv(StrictEnv)
	if value == "" {
		return false, nil
	}
	strict, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", StrictEnv, value, err)
	}
	return strict, nil
}

// Candidates lists the paths ResolvePath will try, in order.
//
// A relative configured path is first tried one directory above the working
// directory, because test runners often chdir into a subdirectory (a web root
// or the package under test) before running. The join is a plain string
// concatenation so callers see the exact path that was tried.
func (r *Resolver) Candidates() ([]string, error) {
	var candidates []string
	value := r.configured()
	if value != "" {
		if filepath.IsAbs(value) {
			candidates = append(candidates, value)
		} else {
			getwd := r.Getwd
			if getwd == nil {
				getwd = os.Getwd
			}
			cwd, err := getwd()
			if err != nil {
				return nil, fmt.Errorf("getting working directory to resolve %s: %w", value, err)
			}
			sep := string(os.PathSeparator)
			candidates = append(candidates,
				cwd+sep+".."+sep+value,
				cwd+sep+value,
			)
		}
		strict, err := r.strict()
		if err != nil {
			return nil, err
		}
		if strict {
			return candidates, nil
		}
	}
	return append(candidates, r.fallbackPath()), nil
}

// ResolvePath returns the first candidate that exists as a regular file.
func (r *Resolver) ResolvePath() (string, error) {
	candidates, err := r.Candidates()
	if err != nil {
		return "", err
	}
	configured := r.configured()
	fallback := r.fallbackPath()
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if configured != "" && candidate == fallback && candidate != configured {
			r.logger().Warn("configured device profiles file not found, using bundled default",
				zap.String("configured", configured),
				zap.String("fallback", fallback),
			)
		}
		r.logger().Debug("resolved device profiles file", zap.String("path", candidate))
		return candidate, nil
	}
	return "", &ConfigurationError{Attempted: candidates}
}

// Load resolves the profiles file, reads it and returns the profile for key.
// The file is read on every call.
func (r *Resolver) Load(key string) (Config, error) {
	doc, err := r.LoadAll()
	if err != nil {
		return Config{}, err
	}
	cfg, err := doc.Profile(key)
	if err != nil {
		return Config{}, err
	}
	r.logger().Info("loaded device profile", zap.String("profile", key), zap.String("path", doc.Path))
	return cfg, nil
}

// LoadAll resolves and parses the profiles file.
func (r *Resolver) LoadAll() (*Document, error) {
	path, err := r.ResolvePath()
	if err != nil {
		return nil, err
	}
	return ReadDocument(path)
}
