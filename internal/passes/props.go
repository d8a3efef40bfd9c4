package passes

import "kiln/internal/sched"

// Tags.
var (
	TagChecked       = sched.Tag("ir.checked")
	TagNotSimplified = sched.Tag("ir.not-simplified")
	TagFolded        = sched.Tag("ir.folded")
	TagFieldsLowered = sched.Tag("ir.fields-lowered")
	TagLowered       = sched.Tag("ir.lowered")
	TagVerified      = sched.Tag("bytecode.verified")
	TagEmitted       = sched.Tag("artifact.emitted")
)

// Marker kinds.
var (
	MarkerLocals = sched.MarkerKind("marker.locals")
	MarkerCode   = sched.MarkerKind("marker.code")
)

// Features.
var (
	FeatureOptimize   = sched.DeclareFeature("optimize", "simplify negations and fold constants before lowering")
	FeatureVerify     = sched.DeclareFeature("verify", "verify stack discipline of generated bytecode")
	FeatureTypeFiles  = sched.DeclareFeature("emit-type-files", "write one .kbc file per type")
	FeatureArchive    = sched.DeclareFeature("emit-archive", "write all types into a single .kar archive")
	FeatureSizeReport = sched.DeclareFeature("size-report", "report per-method code size")
)

// DefaultTargets is what a build asks for unless configured otherwise.
func DefaultTargets() []string { return []string{TagEmitted.Name()} }

// DefaultFeatures is the feature set of a plain build.
func DefaultFeatures() []string {
	return []string{FeatureOptimize.Name(), FeatureVerify.Name(), FeatureTypeFiles.Name()}
}
