package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/padaiyal/multidevice/profiles"
	"github.com/padaiyal/multidevice/webdriver"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

func newPathCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the device profiles file that will be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := a.resolver()
			if verbose {
				candidates, err := r.Candidates()
				if err != nil {
					return err
				}
				for _, candidate := range candidates {
					state := "missing"
					if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
						state = "found"
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "%-7s %s\n", state, candidate)
				}
			}
			path, err := r.ResolvePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every candidate path on stderr")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the profiles in the device profiles file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.resolver().LoadAll()
			if err != nil {
				return err
			}
			for _, key := range doc.Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, doc.Shape(key))
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "show <profile>",
		Short: "Print a profile's driver arguments as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.resolver().Load(args[0])
			if err != nil {
				return err
			}
			var value any = cfg.Value()
			if query != "" {
				value, err = jsonpath.Get(query, value)
				if err != nil {
					return fmt.Errorf("evaluating %s on profile %s: %w", query, cfg.Key, err)
				}
			}
			return printJSON(cmd, value)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", `JSONPath to print instead of the whole profile, e.g. '$[1]["goog:chromeOptions"]'`)
	return cmd
}

func newCapabilitiesCmd(a *app) *cobra.Command {
	var headless bool
	var overrides []string
	cmd := &cobra.Command{
		Use:   "capabilities <profile>",
		Short: "Print the WebDriver capabilities a profile produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.resolver().Load(args[0])
			if err != nil {
				return err
			}
			driverArgs, err := webdriver.ArgsFromProfile(cfg)
			if err != nil {
				return err
			}
			opts := a.settings.DriverOptions()
			opts.Headless = opts.Headless || headless
			opts.Overrides = append(opts.Overrides, overrides...)
			caps, err := webdriver.Capabilities(driverArgs, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "host: %s\n", driverArgs.Host)
			return printJSON(cmd, caps)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "Add the browser's headless argument [env: DEVICE_PROFILE_HEADLESS]")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "Override a capability, path=value (repeatable) [env: DEVICE_PROFILE_OVERRIDES]")
	return cmd
}

func newDiffCmd(a *app) *cobra.Command {
	var inline bool
	cmd := &cobra.Command{
		Use:   "diff <profile> <profile>",
		Short: "Show how two profiles differ",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.resolver().LoadAll()
			if err != nil {
				return err
			}
			texts := make([]string, 2)
			for i, key := range args {
				cfg, err := doc.Profile(key)
				if err != nil {
					return err
				}
				raw, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				texts[i] = string(raw) + "\n"
			}

			if inline {
				dmp := diffmatchpatch.New()
				diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(texts[0], texts[1], false))
				fmt.Fprintln(cmd.OutOrStdout(), dmp.DiffPrettyText(diffs))
				return nil
			}
			edits := myers.ComputeEdits(span.URIFromPath(args[0]), texts[0], texts[1])
			fmt.Fprint(cmd.OutOrStdout(), gotextdiff.ToUnified(args[0], args[1], texts[0], edits))
			return nil
		},
	}
	cmd.Flags().BoolVar(&inline, "inline", false, "Show an inline, colored diff instead of a unified diff")
	return cmd
}

func newEnvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "env <profile>",
		Short: "Print a shell assignment publishing the profile as driver arguments",
		Long: `env prints DEVICE_PROFILE_DRIVER_ARGS='<json>' for drivers that read their
arguments from the environment. Export it before the test process starts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.resolver().Load(args[0])
			if err != nil {
				return err
			}
			raw, err := json.Marshal(cfg)
			if err != nil {
				return err
			}
			quoted := "'" + strings.ReplaceAll(string(raw), "'", `'\''`) + "'"
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", profiles.DriverArgsEnv, quoted)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}
