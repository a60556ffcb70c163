// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/pkg/ux"
	evaldt "github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
	"github.com/jangel97/text-to-mongo/services/evaluation/harness"
)

type evalResultMsg struct {
	passed bool
}

type evalDoneMsg struct {
	report evaldt.EvalReport
	err    error
}

// evalProgressModel renders a progress bar with live pass/fail counts
// while the harness works through a batch.
type evalProgressModel struct {
	bar       progress.Model
	total     int
	completed int
	passed    int
	failed    int
	cancel    context.CancelFunc

	report evaldt.EvalReport
	err    error
}

func newEvalProgressModel(total int, cancel context.CancelFunc) evalProgressModel {
	return evalProgressModel{
		bar:    progress.New(progress.WithDefaultGradient()),
		total:  total,
		cancel: cancel,
	}
}

// Init initializes the bubbletea model.
func (m evalProgressModel) Init() tea.Cmd {
	return nil
}

// Update handles progress events for the bubbletea model.
func (m evalProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case evalResultMsg:
		m.completed++
		if msg.passed {
			m.passed++
		} else {
			m.failed++
		}
		return m, nil
	case evalDoneMsg:
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// The harness observes the context and the done message
			// follows shortly after.
			m.cancel()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 20
		return m, nil
	}
	return m, nil
}

// View renders the progress bar with counts.
func (m evalProgressModel) View() string {
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.completed) / float64(m.total)
	}
	counts := fmt.Sprintf(" %d/%d  %s %d  %s %d",
		m.completed, m.total,
		ux.Styles.Success.Render("✓"), m.passed,
		ux.Styles.Error.Render("✗"), m.failed,
	)
	return m.bar.ViewAs(pct) + counts + "\n"
}

// evaluateWithProgress runs the batch through the harness. On a TTY a
// live progress bar tracks results; in plain mode the run is silent until
// the report.
func evaluateWithProgress(
	ctx context.Context,
	examples []schema.TrainingExample,
	predictions []string,
	heldOut map[string]struct{},
	split string,
	concurrency int,
) (evaldt.EvalReport, error) {
	if ux.Plain() {
		runner := harness.New(
			harness.WithHeldOut(heldOut),
			harness.WithConcurrency(concurrency),
			harness.WithSplit(split),
		)
		return runner.Run(ctx, examples, predictions)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		newEvalProgressModel(len(examples), cancel),
		tea.WithOutput(os.Stderr),
	)

	go func() {
		runner := harness.New(
			harness.WithHeldOut(heldOut),
			harness.WithConcurrency(concurrency),
			harness.WithSplit(split),
			harness.WithProgress(func(_ int, result evaldt.EvalResult) {
				p.Send(evalResultMsg{passed: result.PassedAll})
			}),
		)
		report, err := runner.Run(ctx, examples, predictions)
		p.Send(evalDoneMsg{report: report, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return evaldt.EvalReport{}, fmt.Errorf("progress UI failed: %w", err)
	}
	m, ok := finalModel.(evalProgressModel)
	if !ok {
		return evaldt.EvalReport{}, fmt.Errorf("unexpected model type from bubbletea: %T", finalModel)
	}
	return m.report, m.err
}
