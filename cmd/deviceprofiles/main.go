// Package main provides deviceprofiles, a tool for checking which device
// profiles file a test run will use and what each profile turns into.
package main

import (
	"fmt"
	"os"

	"github.com/padaiyal/multidevice/config"
	"github.com/padaiyal/multidevice/logging"
	"github.com/padaiyal/multidevice/profiles"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var version = "0.1.0"

type app struct {
	viper    *viper.Viper
	envFile  string
	settings config.Settings
	logger   *zap.Logger
}

func (a *app) resolver() *profiles.Resolver {
	r := a.settings.Resolver(a.logger)
	r.Path = a.settings.ProfilesPath
	return r
}

func (a *app) setup(_ *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	settings, err := config.Load(a.viper)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.settings = settings
	a.logger, err = logging.New(settings.LogLevel)
	return err
}

func newRootCmd() *cobra.Command {
	a := &app{viper: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "deviceprofiles",
		Short: "Inspect the device profiles used by multi-device browser tests",
		Long: `deviceprofiles resolves the device profiles file the same way the test suites do
and shows the driver arguments and capabilities each profile produces.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("profiles", "", "Device profiles file [env: DEVICE_PROFILE_YAML_PATH]")
	flags.Bool("strict", false, "Do not fall back to the bundled profiles file [env: DEVICE_PROFILE_STRICT]")
	flags.String("log-level", config.DefaultLogLevel, "Set log level (debug|info|warn|error) [env: DEVICE_PROFILE_LOG_LEVEL]")
	flags.StringVar(&a.envFile, "env-file", "", "Env file to load before reading settings [env: DEVICE_PROFILE_ENV_FILE]")
	for key, flag := range map[string]string{"yaml_path": "profiles", "strict": "strict", "log_level": "log-level"} {
		if err := a.viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding %s flag: %v", flag, err))
		}
	}

	rootCmd.AddCommand(
		newPathCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCapabilitiesCmd(a),
		newDiffCmd(a),
		newEnvCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "deviceprofiles v%s\n", version)
			},
		},
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
