package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"kiln/internal/buildpipeline"
	"kiln/internal/ui"
)

// uiMode is the value of --ui. The zero value means auto.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func (m *uiMode) String() string {
	if *m == "" {
		return string(uiModeAuto)
	}
	return string(*m)
}

func (m *uiMode) Set(value string) error {
	switch v := uiMode(strings.ToLower(strings.TrimSpace(value))); v {
	case "", uiModeAuto:
		*m = uiModeAuto
	case uiModeOn, uiModeOff:
		*m = v
	default:
		return fmt.Errorf("expected auto|on|off, got %q", value)
	}
	return nil
}

func (m *uiMode) Type() string { return "mode" }

// useTUI decides whether the progress view runs. In auto mode it needs a
// terminal on stdout, no --quiet and human-readable diagnostics.
func (m uiMode) useTUI(quiet, machineOutput bool) bool {
	switch m {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	return !quiet && !machineOutput && isTerminal(os.Stdout)
}

// runCompileWithUI runs s.Compile in the background and renders its
// progress events until the run finishes.
func runCompileWithUI(ctx context.Context, title string, s *buildpipeline.Session, req *buildpipeline.CompileRequest) (buildpipeline.CompileResult, error) {
	events := make(chan buildpipeline.Event, 256)
	type outcome struct {
		res buildpipeline.CompileResult
		err error
	}
	done := make(chan outcome, 1)

	keys := make([]string, 0, len(req.Units))
	for _, u := range req.Units {
		keys = append(keys, u.Key())
	}

	withUI := *req
	withUI.Progress = buildpipeline.MultiSink{req.Progress, buildpipeline.ChannelSink{Ch: events}}
	go func() {
		defer close(events)
		res, err := s.Compile(ctx, &withUI)
		done <- outcome{res, err}
	}()

	_, uiErr := tea.NewProgram(ui.NewProgressModel(title, keys, events), tea.WithOutput(os.Stdout)).Run()
	// the model stops reading on error; let the run finish
	for range events {
	}
	out := <-done
	if uiErr != nil {
		return out.res, uiErr
	}
	return out.res, out.err
}
