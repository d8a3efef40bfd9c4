package main

import (
	"fmt"
	"io"

	"kiln/internal/buildpipeline"
)

var stageVerbs = map[buildpipeline.Stage]string{
	buildpipeline.StageLoad: "loaded",
	buildpipeline.StagePlan: "planned",
	buildpipeline.StageRun:  "ran",
	buildpipeline.StageEmit: "wrote",
}

// printStageTimings prints one "<verb> N ms" line per stage that ran.
func printStageTimings(out io.Writer, timings buildpipeline.Timings) error {
	for _, st := range timings {
		verb, ok := stageVerbs[st.Stage]
		if !ok {
			verb = string(st.Stage)
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", verb, st.Dur.Seconds()*1000); err != nil {
			return err
		}
	}
	return nil
}
