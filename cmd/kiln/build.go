package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kiln/internal/buildpipeline"
	"kiln/internal/diag"
	"kiln/internal/diagfmt"
	"kiln/internal/ir"
	"kiln/internal/observ"
	"kiln/internal/sched"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] program...",
	Short: "Compile programs to bytecode",
	Long: `Load each program (.toml or .yaml), resolve the pass plan for the
effective configuration and run it over every type. Failing types are
reported and skipped; the others are still emitted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: buildExecution,
}

func init() {
	addConfigFlags(buildCmd)
	buildCmd.Flags().Var(new(uiMode), "ui", "progress view (auto|on|off)")
	buildCmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json|csv)")
	buildCmd.Flags().String("report", "", "print per-step statistics (text|csv|json)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	mode := *cmd.Flags().Lookup("ui").Value.(*uiMode)
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := diagfmt.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	reportValue, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	var report observ.ReportFormat
	if reportValue != "" {
		if report, err = observ.ParseReportFormat(reportValue); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	timer := observ.NewTimer()
	stats := observ.NewStepStats()
	bag := newBag(cmd)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	useTUI := mode.useTUI(quiet(cmd), format == diagfmt.FormatJSON || format == diagfmt.FormatCSV)

	done := timer.Track("config")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	done(cfg.Path)

	session, err := buildpipeline.NewSession(cfg, rep)
	if err != nil {
		_ = printDiagnostics(cmd, out, bag, format, "")
		return exitError{code: 1}
	}

	var (
		failed  bool
		lastRun string
		results []buildpipeline.CompileResult
	)
	for _, path := range args {
		done := timer.Track("load " + path)
		units, err := ir.LoadProgram(path)
		done(fmt.Sprintf("%d type(s)", len(units)))
		if err != nil {
			diag.ReportError(rep, diag.IOLoadProgram, diag.Subject{Item: path}, err.Error()).Emit()
			failed = true
			continue
		}

		req := &buildpipeline.CompileRequest{Units: units, Reporter: rep, Stats: stats}
		done = timer.Track("compile " + path)
		var res buildpipeline.CompileResult
		if useTUI {
			res, err = runCompileWithUI(cmd.Context(), "kiln build "+path, session, req)
		} else {
			res, err = session.Compile(cmd.Context(), req)
		}
		done(res.RunID)
		results = append(results, res)
		lastRun = res.RunID
		if err != nil {
			failed = true
			if sched.IsConfigError(err) {
				// план один на сессию: остальные программы упадут так же
				break
			}
		}
	}

	done = timer.Track("write")
	written, err := session.Close()
	done(fmt.Sprintf("%d file(s)", len(written)))
	if err != nil {
		failed = true
	}

	if err := printDiagnostics(cmd, out, bag, format, lastRun); err != nil {
		return err
	}
	if machine := format == diagfmt.FormatJSON || format == diagfmt.FormatCSV; !quiet(cmd) && !machine {
		if err := printBuildSummary(out, results, written, session.PlanBuilds()); err != nil {
			return err
		}
	}
	if report != "" {
		if err := observ.WriteReport(out, stats.Snapshot(), report); err != nil {
			return err
		}
	}
	if showTimings(cmd) {
		for _, res := range results {
			if err := printStageTimings(out, res.Timings); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(out, timer.Summary()); err != nil {
			return err
		}
	}
	if failed {
		return exitError{code: 1}
	}
	return nil
}

func printBuildSummary(w io.Writer, results []buildpipeline.CompileResult, written []string, planBuilds int64) error {
	var done, failed, skipped int
	var aborted error
	for _, res := range results {
		d, f, s := res.Run.Counts()
		done, failed, skipped = done+d, failed+f, skipped+s
		if res.Run.Aborted && aborted == nil {
			aborted = res.Run.AbortErr
		}
	}
	if _, err := fmt.Fprintf(w, "built %d type(s): %d done, %d failed, %d skipped (plan resolved %d time(s))\n",
		done+failed+skipped, done, failed, skipped, planBuilds); err != nil {
		return err
	}
	var ee *sched.ExecError
	if aborted != nil && !errors.As(aborted, &ee) {
		if _, err := fmt.Fprintf(w, "aborted: %v\n", aborted); err != nil {
			return err
		}
	}
	for _, path := range written {
		if _, err := fmt.Fprintf(w, "wrote %s\n", path); err != nil {
			return err
		}
	}
	return nil
}
