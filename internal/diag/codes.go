package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Конфигурация плана: обнаруживаются до запуска любого элемента.
	SchedInfo                Code = 1000
	SchedDuplicateStep       Code = 1001
	SchedNeedNoConflict      Code = 1002
	SchedEmptyProduction     Code = 1003
	SchedMissingRun          Code = 1004
	SchedInvalidProp         Code = 1005
	SchedCycle               Code = 1006
	SchedMissingProducer     Code = 1007
	SchedNoViolation         Code = 1008
	SchedUnreachableTarget   Code = 1009
	SchedUnknownFeature      Code = 1010
	SchedRegistryFrozen      Code = 1011
	SchedAlternativeProducer Code = 1012
	SchedInvalidName         Code = 1013

	// Выполнение плана.
	ExecInfo    Code = 2000
	ExecFailed  Code = 2001
	ExecPanic   Code = 2002
	ExecAborted Code = 2003
	ExecSkipped Code = 2004

	// Проходы и IR.
	PassInfo          Code = 3000
	PassStructure     Code = 3001
	PassUnknownSymbol Code = 3002
	PassStackDepth    Code = 3003
	PassEmitFailed    Code = 3004
	PassFoldDepth     Code = 3005

	// Ввод/вывод и конфигурация.
	IOLoadProgram Code = 4001
	IOLoadConfig  Code = 4002
	IOWriteOutput Code = 4003
)

var (
	codeDescription = map[Code]string{
		UnknownCode:              "Unknown error",
		SchedInfo:                "Scheduler information",
		SchedDuplicateStep:       "Duplicate schedulable name",
		SchedNeedNoConflict:      "Schedulable both needs and forbids the same property",
		SchedEmptyProduction:     "Schedulable produces nothing and is not an analysis",
		SchedMissingRun:          "Schedulable has no run function",
		SchedInvalidProp:         "Invalid tag or marker reference",
		SchedCycle:               "Dependency cycle between schedulables",
		SchedMissingProducer:     "Needed property has no eligible producer",
		SchedNoViolation:         "Forbidden property is produced upstream",
		SchedUnreachableTarget:   "Target property is never produced",
		SchedUnknownFeature:      "Unknown feature",
		SchedRegistryFrozen:      "Registry is frozen",
		SchedAlternativeProducer: "Several eligible producers, first declared wins",
		SchedInvalidName:         "Schedulable has an empty name",
		ExecInfo:                 "Execution information",
		ExecFailed:               "Schedulable failed on item",
		ExecPanic:                "Schedulable panicked on item",
		ExecAborted:              "Run aborted",
		ExecSkipped:              "Item skipped",
		PassInfo:                 "Pass information",
		PassStructure:            "Malformed compilation unit",
		PassUnknownSymbol:        "Unknown symbol",
		PassStackDepth:           "Bytecode stack imbalance",
		PassEmitFailed:           "Failed to emit artifact",
		PassFoldDepth:            "Constant folding depth limit reached",
		IOLoadProgram:            "Failed to load program",
		IOLoadConfig:             "Failed to load configuration",
		IOWriteOutput:            "Failed to write output",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SCH%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("EXE%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("PAS%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
