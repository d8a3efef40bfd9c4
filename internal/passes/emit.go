package passes

import (
	"context"
	"errors"
	"fmt"

	"kiln/internal/bytecode"
	"kiln/internal/diag"
	"kiln/internal/ir"
	"kiln/internal/sched"
)

// Env carries the output sinks of one build into the emit steps.
type Env struct {
	TypeFiles bytecode.Emitter
	Archive   bytecode.Emitter
}

var errNoOutput = errors.New("no output configured for this emitter")

// TypeOf assembles the compiled form of u from its code markers.
func TypeOf(u *ir.Unit) (bytecode.Type, error) {
	t := bytecode.Type{Name: u.Type.Name, Interface: u.Type.Interface}
	for _, f := range u.Type.Fields() {
		t.Fields = append(t.Fields, f.Name)
	}
	for _, m := range u.Type.Methods() {
		cm, ok := ir.MarkerOf[*CodeMarker](m, MarkerCode)
		if !ok {
			return bytecode.Type{}, fmt.Errorf("method %s has no compiled code", m.Name)
		}
		t.Methods = append(t.Methods, *cm.Method)
	}
	return t, nil
}

func verifyBytecode(_ context.Context, sc *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	t, err := TypeOf(u)
	if err != nil {
		return err
	}
	if err := bytecode.VerifyType(&t); err != nil {
		sc.Report(diag.PassStackDepth, diag.SevError, u, err.Error())
		return err
	}
	return nil
}

func emitTo(pick func(*Env) bytecode.Emitter, env *Env) sched.RunFunc {
	return func(_ context.Context, sc *sched.StepContext, item sched.Item) error {
		u, err := unitOf(item)
		if err != nil {
			return err
		}
		var out bytecode.Emitter
		if env != nil {
			out = pick(env)
		}
		if out == nil {
			return errNoOutput
		}
		t, err := TypeOf(u)
		if err != nil {
			return err
		}
		if err := out.Emit(t); err != nil {
			sc.Report(diag.PassEmitFailed, diag.SevError, u, err.Error())
			return err
		}
		return nil
	}
}

// reportSizes is an analysis: it only reports instruction counts.
func reportSizes(_ context.Context, sc *sched.StepContext, item sched.Item) error {
	u, err := unitOf(item)
	if err != nil {
		return err
	}
	total := 0
	for _, m := range u.Type.Methods() {
		if cm, ok := ir.MarkerOf[*CodeMarker](m, MarkerCode); ok {
			total += len(cm.Method.Code)
		}
	}
	sc.Report(diag.PassInfo, diag.SevInfo, u,
		fmt.Sprintf("%d method(s), %d instruction(s)", len(u.Type.Methods()), total))
	return nil
}
