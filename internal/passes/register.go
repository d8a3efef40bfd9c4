package passes

import (
	"kiln/internal/bytecode"
	"kiln/internal/sched"
)

// Schedulables returns the pipeline in declaration order. env supplies
// the emit outputs; it may be nil when nothing will be emitted.
func Schedulables(env *Env) []sched.Schedulable {
	return []sched.Schedulable{
		{
			Name:        "check-structure",
			Description: "reject malformed types, unknown names and arity mismatches",
			Produces:    []sched.Prop{TagChecked},
			Run:         checkStructure,
		},
		{
			Name:        "lower-field-init",
			Description: "move field initialisers into <init>",
			Needs:       []sched.Prop{TagChecked},
			Produces:    []sched.Prop{TagFieldsLowered},
			Run:         lowerFieldInit,
		},
		{
			Name:        "simplify-not",
			Description: "remove logical negations of comparisons",
			Needs:       []sched.Prop{TagChecked},
			No:          []sched.Prop{TagLowered},
			Produces:    []sched.Prop{TagNotSimplified},
			Supports:    []sched.Feature{FeatureOptimize},
			Mandatory:   true,
			Run:         simplifyNot,
		},
		{
			Name:        "fold-constants",
			Description: "evaluate constant expressions and prune constant branches",
			Needs:       []sched.Prop{TagChecked},
			No:          []sched.Prop{TagLowered},
			Produces:    []sched.Prop{TagFolded},
			Supports:    []sched.Feature{FeatureOptimize},
			Mandatory:   true,
			Run:         foldConstants,
		},
		{
			Name:        "compute-locals",
			Description: "assign local variable slots",
			Needs:       []sched.Prop{TagFieldsLowered},
			Produces:    []sched.Prop{MarkerLocals},
			Run:         computeLocals,
		},
		{
			Name:        "lower-to-bytecode",
			Description: "compile method bodies to stack bytecode",
			Needs:       []sched.Prop{TagFieldsLowered, MarkerLocals},
			Produces:    []sched.Prop{TagLowered, MarkerCode},
			Run:         lowerToBytecode,
		},
		{
			Name:        "verify-bytecode",
			Description: "check stack discipline and operand ranges",
			Needs:       []sched.Prop{TagLowered},
			No:          []sched.Prop{TagEmitted},
			Produces:    []sched.Prop{TagVerified},
			Supports:    []sched.Feature{FeatureVerify},
			Mandatory:   true,
			Run:         verifyBytecode,
		},
		{
			Name:        "emit-type-files",
			Description: "write one .kbc image per type",
			Needs:       []sched.Prop{TagLowered, MarkerCode},
			Produces:    []sched.Prop{TagEmitted},
			Supports:    []sched.Feature{FeatureTypeFiles},
			Mandatory:   true,
			Run:         emitTo(func(e *Env) bytecode.Emitter { return e.TypeFiles }, env),
		},
		{
			Name:        "emit-archive",
			Description: "add the type to the .kar archive",
			Needs:       []sched.Prop{TagLowered, MarkerCode},
			Produces:    []sched.Prop{TagEmitted},
			Supports:    []sched.Feature{FeatureArchive},
			Mandatory:   true,
			Run:         emitTo(func(e *Env) bytecode.Emitter { return e.Archive }, env),
		},
		{
			Name:        "report-sizes",
			Description: "report method and instruction counts",
			Needs:       []sched.Prop{MarkerCode},
			Supports:    []sched.Feature{FeatureSizeReport},
			Mandatory:   true,
			Analysis:    true,
			Run:         reportSizes,
		},
	}
}

// NewRegistry registers the pipeline into a fresh registry.
func NewRegistry(env *Env) *sched.Registry {
	reg := sched.NewRegistry()
	reg.MustRegister(Schedulables(env)...)
	return reg
}
