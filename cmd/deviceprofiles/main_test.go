package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/padaiyal/multidevice/config"
	"github.com/padaiyal/multidevice/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilesYAML = `
desktop:
  - chrome
  - goog:chromeOptions:
      args: ["--window-size=1920,1080"]
  - http://selenium:4444/wd/hub
small_mobile:
  - chrome
  - goog:chromeOptions:
      mobileEmulation:
        deviceMetrics: {width: 360, height: 640, pixelRatio: 3.0, touch: true}
  - http://selenium:4444/wd/hub
broken: firefox
`

func writeProfiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPathCommand(t *testing.T) {
	path := writeProfiles(t)

	out, _, err := run(t, "path", "--profiles", path, "--strict")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestPathCommandVerboseListsCandidates(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, stderr, err := run(t, "path", "-v", "--profiles", missing, "--strict")
	var cfgErr *profiles.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, stderr, "missing "+missing)
}

func TestListCommand(t *testing.T) {
	out, _, err := run(t, "list", "--profiles", writeProfiles(t), "--strict")
	require.NoError(t, err)
	assert.Equal(t, "desktop\tsequence\nsmall_mobile\tsequence\nbroken\tinvalid\n", out)
}

func TestShowCommand(t *testing.T) {
	path := writeProfiles(t)

	out, _, err := run(t, "show", "desktop", "--profiles", path, "--strict")
	require.NoError(t, err)
	assert.JSONEq(t, `["chrome", {"goog:chromeOptions": {"args": ["--window-size=1920,1080"]}}, "http://selenium:4444/wd/hub"]`, out)

	out, _, err = run(t, "show", "small_mobile", "--profiles", path, "--strict",
		"--query", `$[1]["goog:chromeOptions"].mobileEmulation.deviceMetrics.width`)
	require.NoError(t, err)
	assert.Equal(t, "360\n", out)

	_, _, err = run(t, "show", "broken", "--profiles", path, "--strict")
	var notFound *profiles.ProfileNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCapabilitiesCommand(t *testing.T) {
	out, stderr, err := run(t, "capabilities", "desktop", "--profiles", writeProfiles(t), "--strict",
		"--headless", "--set", "acceptInsecureCerts=true")
	require.NoError(t, err)
	assert.Contains(t, stderr, "host: http://selenium:4444/wd/hub")

	var caps map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &caps))
	assert.Equal(t, "chrome", caps["browserName"])
	assert.Equal(t, true, caps["acceptInsecureCerts"])
	assert.Equal(t, []any{"--window-size=1920,1080", "--headless=new"}, caps["goog:chromeOptions"].(map[string]any)["args"])
}

func TestDiffCommand(t *testing.T) {
	path := writeProfiles(t)

	out, _, err := run(t, "diff", "desktop", "small_mobile", "--profiles", path, "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "--- desktop")
	assert.Contains(t, out, "+++ small_mobile")
	assert.Contains(t, out, `-      "args": [`)
	assert.Contains(t, out, `+      "mobileEmulation": {`)

	out, _, err = run(t, "diff", "desktop", "small_mobile", "--profiles", path, "--strict", "--inline")
	require.NoError(t, err)
	assert.Contains(t, out, "mobileEmulation")
}

func TestEnvCommand(t *testing.T) {
	out, _, err := run(t, "env", "desktop", "--profiles", writeProfiles(t), "--strict")
	require.NoError(t, err)
	assert.Equal(t,
		profiles.DriverArgsEnv+`='["chrome",{"goog:chromeOptions":{"args":["--window-size=1920,1080"]}},"http://selenium:4444/wd/hub"]'`+"\n",
		out)
}

func TestInvalidSettings(t *testing.T) {
	t.Setenv("DEVICE_PROFILE_BACKEND", "playwright")

	_, _, err := run(t, "list", "--profiles", writeProfiles(t))
	assert.ErrorContains(t, err, `invalid backend "playwright"`)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "deviceprofiles v"+version+"\n", out)
}

func TestLogLevelDefault(t *testing.T) {
	t.Setenv("DEVICE_PROFILE_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("DEVICE_PROFILE_LOG_LEVEL"))

	a := &app{viper: config.NewViper()}
	cmd := newRootCmd()
	flag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	require.NoError(t, a.viper.BindPFlag("log_level", flag))
	require.NoError(t, a.setup(cmd, nil))

	assert.Equal(t, flag.DefValue, a.settings.LogLevel, "help text default is the level actually used")
}
