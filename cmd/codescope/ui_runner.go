package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"codescope/internal/driver"
	"codescope/internal/ui"
)

type analyzeOutcome struct {
	result *driver.Result
	err    error
}

// runAnalyzeWithUI runs Analyze in the background and renders its stage
// events until it returns. Quitting the UI cancels the run.
func runAnalyzeWithUI(ctx context.Context, title string, prog *driver.Program, opts driver.Options) (*driver.Result, error) {
	stages, err := driver.PlannedStages(opts.Tasks)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driver.StageEvent, 64)
	outcomeCh := make(chan analyzeOutcome, 1)
	next := opts.Observer
	opts.Observer = func(ev driver.StageEvent) {
		if next != nil {
			next(ev)
		}
		events <- ev
	}

	go func() {
		res, err := driver.Analyze(ctx, prog, opts)
		outcomeCh <- analyzeOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, stages, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// UI закрывается сам, когда анализ завершён; раньше - только по Ctrl+C
	cancel()
	// дочитываем события, если UI вышел раньше анализа
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
