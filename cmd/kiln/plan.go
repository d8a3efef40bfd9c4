package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kiln/internal/buildpipeline"
	"kiln/internal/diag"
	"kiln/internal/diagfmt"
)

var planCmd = &cobra.Command{
	Use:   "plan [flags]",
	Short: "Print the pass plan for the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  planExecution,
}

func init() {
	addConfigFlags(planCmd)
	planCmd.Flags().String("format", "text", "output format (text|json)")
}

func planExecution(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid --format %q (expected text|json)", format)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	bag := newBag(cmd)
	diagFormat := diagfmt.FormatPretty
	if format == "json" {
		diagFormat = diagfmt.FormatJSON
	}
	s, err := buildpipeline.NewSession(cfg, diag.BagReporter{Bag: bag})
	if err != nil {
		_ = printDiagnostics(cmd, out, bag, diagFormat, "")
		return exitError{code: 1}
	}
	plan, err := s.Plan(cmd.Context())
	if err != nil {
		_ = printDiagnostics(cmd, out, bag, diagFormat, "")
		return exitError{code: 1}
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan.View())
	}
	if err := plan.Dump(out); err != nil {
		return err
	}
	// информационные (альтернативные производители)
	return printDiagnostics(cmd, cmd.ErrOrStderr(), bag, diagfmt.FormatPretty, "")
}
