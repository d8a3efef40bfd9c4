package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kiln/internal/diag"
	"kiln/internal/passes"
	"kiln/internal/sched"
)

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "List registered passes and features",
	Args:  cobra.NoArgs,
	RunE:  passesExecution,
}

func init() {
	passesCmd.Flags().String("format", "text", "output format (text|json)")
}

type featureEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

func passesExecution(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	reg := passes.NewRegistry(nil)
	if err := reg.Validate(diag.NopReporter{}); err != nil {
		return err
	}

	var entries []sched.StepView
	for _, s := range reg.Steps() {
		entries = append(entries, s.View())
	}
	defaults, _ := sched.ParseFeatures(passes.DefaultFeatures())
	var features []featureEntry
	for _, f := range sched.Features() {
		features = append(features, featureEntry{Name: f.Name(), Description: f.Description(), Default: defaults.Has(f)})
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Passes   []sched.StepView `json:"passes"`
			Features []featureEntry   `json:"features"`
		}{entries, features})
	case "text":
	default:
		return fmt.Errorf("invalid --format %q (expected text|json)", format)
	}

	head := color.New(color.Bold)
	if useColor(cmd, out) {
		head.EnableColor()
	} else {
		head.DisableColor()
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, head.Sprint("PASS")+"\t"+head.Sprint("NEEDS")+"\t"+head.Sprint("NO")+"\t"+head.Sprint("PRODUCES")+"\t"+head.Sprint("FEATURES"))
	for _, e := range entries {
		name := e.Name
		switch {
		case e.Mandatory && e.Analysis:
			name += " [mandatory, analysis]"
		case e.Mandatory:
			name += " [mandatory]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, list(e.Needs), list(e.No), list(e.Produces), list(e.Supports))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, head.Sprint("FEATURE")+"\t"+head.Sprint("DEFAULT")+"\t"+head.Sprint("DESCRIPTION"))
	for _, f := range features {
		def := ""
		if f.Default {
			def = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, def, f.Description)
	}
	return tw.Flush()
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
