package webdriver

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/padaiyal/multidevice/profiles"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tidwall/sjson"
)

const FIREFOX string = "firefox"
const CHROME string = "chrome"

// DefaultHost is the WebDriver endpoint used when a profile does not name one.
const DefaultHost = "http://localhost:4444/wd/hub"

/*
Profiles hold the same arguments as a Selenium2 driver constructor, either in
order:

	[browserName, desiredCapabilities, wdHost]

or by name:

	{browserName: ..., desiredCapabilities: ..., wdHost: ...}

Every argument is optional.
*/
var argNames = []string{"browserName", "desiredCapabilities", "wdHost"}

// Args are the driver constructor arguments taken from a device profile.
type Args struct {
	Browser      string
	Capabilities map[string]any
	Host         string
}

// Options adjust capabilities for the environment the tests run in,
// without editing the profiles file.
type Options struct {
	Headless bool
	// Overrides are "path=value" pairs applied to the capabilities with sjson
	// paths. Values that parse as JSON are set as JSON, others as strings.
	Overrides []string
}

// ArgsFromProfile interprets a device profile as driver constructor arguments.
func ArgsFromProfile(cfg profiles.Config) (Args, error) {
	args := Args{Browser: FIREFOX, Host: DefaultHost}
	values := make(map[string]any, len(argNames))

	if cfg.IsPositional() {
		if len(cfg.Positional) > len(argNames) {
			return Args{}, fmt.Errorf("profile %s: expected at most %d driver arguments, got %d", cfg.Key, len(argNames), len(cfg.Positional))
		}
		for i, value := range cfg.Positional {
			values[argNames[i]] = value
		}
	} else {
		for name, value := range cfg.Named {
			if !isArgName(name) {
				return Args{}, fmt.Errorf("profile %s: unknown driver argument %q, expected one of %s", cfg.Key, name, strings.Join(argNames, ", "))
			}
			values[name] = value
		}
	}

	if value, ok := values["browserName"]; ok && value != nil {
		browser, ok := value.(string)
		if !ok || browser == "" {
			return Args{}, fmt.Errorf("profile %s: browserName must be a non-empty string, got %v", cfg.Key, value)
		}
		args.Browser = browser
	}
	if value, ok := values["desiredCapabilities"]; ok && value != nil {
		caps, ok := value.(map[string]any)
		if !ok {
			return Args{}, fmt.Errorf("profile %s: desiredCapabilities must be a mapping, got %T", cfg.Key, value)
		}
		args.Capabilities = caps
	}
	if value, ok := values["wdHost"]; ok && value != nil {
		host, ok := value.(string)
		if !ok || host == "" {
			return Args{}, fmt.Errorf("profile %s: wdHost must be a non-empty string, got %v", cfg.Key, value)
		}
		args.Host = host
	}
	return args, nil
}

func isArgName(name string) bool {
	for _, argName := range argNames {
		if name == argName {
			return true
		}
	}
	return false
}

// Capabilities builds the Selenium capabilities for args.
func Capabilities(args Args, opts Options) (selenium.Capabilities, error) {
	caps := selenium.Capabilities{}
	maps.Copy(caps, deepCopy(args.Capabilities).(map[string]any))
	caps["browserName"] = args.Browser

	if opts.Headless {
		switch args.Browser {
		case CHROME:
			if err := appendBrowserArg(caps, chrome.CapabilitiesKey, "--headless=new"); err != nil {
				return nil, err
			}
		case FIREFOX:
			if err := appendBrowserArg(caps, firefox.CapabilitiesKey, "-headless"); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("headless mode is not supported for browser %s", args.Browser)
		}
	}

	if len(opts.Overrides) == 0 {
		return caps, nil
	}
	return applyOverrides(caps, opts.Overrides)
}

func appendBrowserArg(caps selenium.Capabilities, key string, arg string) error {
	options := map[string]any{}
	if existing, ok := caps[key]; ok && existing != nil {
		existingOptions, ok := existing.(map[string]any)
		if !ok {
			return fmt.Errorf("%s must be a mapping, got %T", key, existing)
		}
		options = existingOptions
	}
	var browserArgs []any
	if existing, ok := options["args"]; ok && existing != nil {
		existingArgs, ok := existing.([]any)
		if !ok {
			return fmt.Errorf("%s.args must be a list, got %T", key, existing)
		}
		browserArgs = existingArgs
	}
	for _, browserArg := range browserArgs {
		if s, ok := browserArg.(string); ok && strings.HasPrefix(strings.TrimLeft(s, "-"), "headless") {
			caps[key] = options
			return nil
		}
	}
	options["args"] = append(browserArgs, arg)
	caps[key] = options
	return nil
}

func applyOverrides(caps selenium.Capabilities, overrides []string) (selenium.Capabilities, error) {
	raw, err := json.Marshal(caps)
	if err != nil {
		return nil, fmt.Errorf("encoding capabilities: %w", err)
	}
	for _, override := range overrides {
		path, value, ok := strings.Cut(override, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid capability override %q, expected path=value", override)
		}
		if json.Valid([]byte(value)) {
			raw, err = sjson.SetRawBytes(raw, path, []byte(value))
		} else {
			raw, err = sjson.SetBytes(raw, path, value)
		}
		if err != nil {
			return nil, fmt.Errorf("applying capability override %q: %w", override, err)
		}
	}
	overridden := selenium.Capabilities{}
	if err := json.Unmarshal(raw, &overridden); err != nil {
		return nil, fmt.Errorf("decoding capabilities: %w", err)
	}
	return overridden, nil
}

// deepCopy copies the maps and slices of a decoded YAML or JSON value so
// capability edits never reach the loaded profile.
func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(v))
		for key, item := range v {
			copied[key] = deepCopy(item)
		}
		return copied
	case []any:
		copied := make([]any, len(v))
		for i, item := range v {
			copied[i] = deepCopy(item)
		}
		return copied
	default:
		return v
	}
}
