// Package buildpipeline wires configuration, the pass registry and the
// runner into one build.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kiln/internal/bytecode"
	"kiln/internal/config"
	"kiln/internal/diag"
	"kiln/internal/ir"
	"kiln/internal/observ"
	"kiln/internal/passes"
	"kiln/internal/sched"
	"kiln/internal/trace"
)

// Request translates the configured names into a plan request.
func Request(cfg *config.Config) (sched.Request, error) {
	targets, terr := sched.ParseProps(cfg.Build.Targets)
	features, ferr := sched.ParseFeatures(cfg.Build.Features)
	if err := errors.Join(terr, ferr); err != nil {
		return sched.Request{}, err
	}
	return sched.Request{Targets: targets, Features: features}, nil
}

// Session is one configuration's worth of builds: the emitters, the
// registry bound to them and the plan cache. Programs compiled through
// the same session share outputs and reuse the plan.
type Session struct {
	Config   *config.Config
	Registry *sched.Registry

	req     sched.Request
	rep     diag.Reporter
	env     passes.Env
	dir     *bytecode.DirWriter
	archive *bytecode.ArchiveWriter
	cache   *sched.PlanCache
}

// NewSession prepares writers for the enabled emit features only.
// Plan-level diagnostics go to rep.
func NewSession(cfg *config.Config, rep diag.Reporter) (*Session, error) {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	req, err := Request(cfg)
	if err != nil {
		for _, ce := range sched.ConfigErrors(err) {
			diag.ReportError(rep, ce.Kind.Code(), diag.Subject{}, ce.Message).Emit()
		}
		return nil, err
	}
	s := &Session{Config: cfg, req: req, rep: rep}
	if req.Features.Has(passes.FeatureTypeFiles) {
		s.dir = bytecode.NewDirWriter(cfg.Build.Output)
		s.env.TypeFiles = s.dir
	}
	if req.Features.Has(passes.FeatureArchive) {
		s.archive = bytecode.NewArchiveWriter(cfg.Build.Archive)
		s.env.Archive = s.archive
	}
	s.Registry = passes.NewRegistry(&s.env)
	s.cache = sched.NewPlanCache(sched.Builder{Registry: s.Registry, Reporter: rep})
	return s, nil
}

// Plan returns the (cached) plan for the session's configuration.
func (s *Session) Plan(ctx context.Context) (*sched.Plan, error) {
	return s.cache.Get(ctx, s.req)
}

// PlanBuilds reports how many times the plan was actually resolved.
func (s *Session) PlanBuilds() int64 { return s.cache.Builds() }

// Close flushes the archive and lists every file produced.
func (s *Session) Close() ([]string, error) {
	var written []string
	if s.dir != nil {
		written = append(written, s.dir.Written()...)
	}
	if s.archive != nil && s.archive.Len() > 0 {
		if err := s.archive.Close(); err != nil {
			diag.ReportError(s.rep, diag.IOWriteOutput, diag.Subject{}, err.Error()).Emit()
			return written, fmt.Errorf("write archive: %w", err)
		}
		written = append(written, s.archive.Path)
	}
	return written, nil
}

// CompileRequest configures one program build within a session.
type CompileRequest struct {
	// ProgramPath is a .toml/.yaml program file.
	ProgramPath string
	// Units replaces ProgramPath when set.
	Units []*ir.Unit
	// Reporter receives load and run diagnostics; defaults to the
	// session's reporter.
	Reporter diag.Reporter
	Progress ProgressSink
	Stats    *observ.StepStats
	// RunID defaults to a random UUID.
	RunID string
}

// CompileResult captures the plan and the per-unit outcomes.
type CompileResult struct {
	RunID   string
	Plan    *sched.Plan
	Units   []*ir.Unit
	Run     sched.Result
	Written []string
	Timings Timings
}

// Compile loads the program, resolves the plan and runs it over every
// unit. A non-nil error means something failed: plan errors are
// *sched.ConfigError, unit failures *sched.ExecError. Per-unit detail is
// in Run.Outcomes and the reporter.
func (s *Session) Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var result CompileResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing compile request")
	}
	rep := req.Reporter
	if rep == nil {
		rep = s.rep
	}
	result.RunID = req.RunID
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "compile")
	defer span.End(result.RunID)

	emit(req.Progress, Event{Stage: StageLoad, Status: StatusWorking})
	loadStart := time.Now()
	units := req.Units
	if units == nil {
		var err error
		units, err = ir.LoadProgram(req.ProgramPath)
		if err != nil {
			diag.ReportError(rep, diag.IOLoadProgram, diag.Subject{}, err.Error()).Emit()
			emit(req.Progress, Event{Stage: StageLoad, Status: StatusError, Err: err})
			return result, fmt.Errorf("load program: %w", err)
		}
	}
	result.Units = units
	result.Timings.add(StageLoad, time.Since(loadStart))

	emit(req.Progress, Event{Stage: StagePlan, Status: StatusWorking})
	planStart := time.Now()
	plan, err := s.Plan(ctx)
	if err != nil {
		emit(req.Progress, Event{Stage: StagePlan, Status: StatusError, Err: err})
		return result, err
	}
	result.Plan = plan
	result.Timings.add(StagePlan, time.Since(planStart))

	keys := make([]string, len(units))
	for i, u := range units {
		keys[i] = u.Key()
	}
	emitQueued(req.Progress, keys)
	emit(req.Progress, Event{Stage: StageRun, Status: StatusWorking, Total: plan.Len()})
	runner := sched.Runner{
		Jobs:     s.Config.Build.Jobs,
		FailFast: s.Config.Build.FailFast,
		Config:   s.Config,
		Reporter: rep,
		Observer: newRunObserver(req.Progress, req.Stats, plan),
		RunID:    result.RunID,
	}
	result.Run = runner.Run(ctx, plan, ir.Items(units))
	for _, out := range result.Run.Outcomes {
		if out.Status == sched.StatusSkipped {
			emit(req.Progress, Event{Item: out.Key, Stage: StageRun, Status: StatusSkipped})
		}
	}
	result.Timings.add(StageRun, result.Run.Elapsed)

	status := StatusDone
	if err := result.Run.Err(); err != nil {
		status = StatusError
	}
	emit(req.Progress, Event{Stage: StageRun, Status: status, Elapsed: result.Timings.Total()})
	return result, result.Run.Err()
}

// Compile builds one program in a fresh session and flushes its outputs.
func Compile(ctx context.Context, cfg *config.Config, req *CompileRequest) (CompileResult, error) {
	if req == nil {
		return CompileResult{}, fmt.Errorf("missing compile request")
	}
	s, err := NewSession(cfg, req.Reporter)
	if err != nil {
		return CompileResult{}, err
	}
	res, runErr := s.Compile(ctx, req)
	emitStart := time.Now()
	written, closeErr := s.Close()
	res.Written = written
	res.Timings.add(StageEmit, time.Since(emitStart))
	return res, errors.Join(runErr, closeErr)
}
