package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"kiln/internal/config"
	"kiln/internal/diag"
	"kiln/internal/diagfmt"
	"kiln/internal/passes"
)

// addConfigFlags registers the flags that override kiln.toml.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "config file (default: nearest kiln.toml/kiln.yaml above the working directory)")
	f.StringArray("feature", nil, "enable a feature (repeatable; replaces the configured list)")
	f.StringArray("no-feature", nil, "disable a feature (repeatable)")
	f.StringArray("target", nil, "target tag (repeatable; replaces the configured list)")
	f.Int("jobs", 0, "worker count (0 = GOMAXPROCS)")
	f.Bool("fail-fast", false, "abort the run on the first failing unit")
	f.String("output", "", "directory for .kbc files")
	f.String("archive", "", "path of the .kar archive")
	f.StringArray("set", nil, "set a tunable, key=value (repeatable)")
}

// loadConfig resolves the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	explicit, err := f.GetString("config")
	if err != nil {
		return nil, err
	}
	base := config.Default(passes.DefaultTargets(), passes.DefaultFeatures())
	cfg, err := config.Resolve(explicit, ".", base)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if f.Changed("feature") {
		if cfg.Build.Features, err = f.GetStringArray("feature"); err != nil {
			return nil, err
		}
	}
	if f.Changed("no-feature") {
		drop, err := f.GetStringArray("no-feature")
		if err != nil {
			return nil, err
		}
		cfg.Build.Features = slices.DeleteFunc(cfg.Build.Features, func(s string) bool {
			return slices.Contains(drop, s)
		})
	}
	if f.Changed("target") {
		if cfg.Build.Targets, err = f.GetStringArray("target"); err != nil {
			return nil, err
		}
	}
	if f.Changed("jobs") {
		if cfg.Build.Jobs, err = f.GetInt("jobs"); err != nil {
			return nil, err
		}
	}
	if f.Changed("fail-fast") {
		if cfg.Build.FailFast, err = f.GetBool("fail-fast"); err != nil {
			return nil, err
		}
	}
	if f.Changed("output") {
		if cfg.Build.Output, err = f.GetString("output"); err != nil {
			return nil, err
		}
	}
	if f.Changed("archive") {
		if cfg.Build.Archive, err = f.GetString("archive"); err != nil {
			return nil, err
		}
	}
	sets, err := f.GetStringArray("set")
	if err != nil {
		return nil, err
	}
	for _, kv := range sets {
		if err := cfg.Set(kv); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newBag sizes a diagnostics bag from --max-diagnostics.
func newBag(cmd *cobra.Command) *diag.Bag {
	limit, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil || limit <= 0 {
		limit = 100
	}
	return diag.NewBag(limit)
}

// printDiagnostics renders bag in the requested format. Pretty output
// honours --color and --min-severity and shows notes.
func printDiagnostics(cmd *cobra.Command, w io.Writer, bag *diag.Bag, format diagfmt.Format, runID string) error {
	if bag.Len() == 0 && format != diagfmt.FormatJSON {
		return nil
	}
	minValue, err := cmd.Root().PersistentFlags().GetString("min-severity")
	if err != nil {
		return err
	}
	minSev, err := diag.ParseSeverity(minValue)
	if err != nil {
		return err
	}
	return diagfmt.Write(w, bag, diagfmt.Options{
		Format: format,
		RunID:  runID,
		Pretty: diagfmt.PrettyOpts{Color: useColor(cmd, w), ShowNotes: true, MinSeverity: minSev},
		JSON:   diagfmt.JSONOpts{IncludeNotes: true},
	})
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}

func showTimings(cmd *cobra.Command) bool {
	t, _ := cmd.Root().PersistentFlags().GetBool("timings")
	return t
}
