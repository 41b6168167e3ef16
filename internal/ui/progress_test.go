package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/driver"
)

func TestStageEventsDriveRows(t *testing.T) {
	events := make(chan driver.StageEvent)
	m := NewProgressModel("analyze", []string{"resolve", "cfg"}, events).(*progressModel)

	m.Update(eventMsg{Name: "resolve", Status: driver.StageStart})
	assert.Equal(t, "running", m.items[0].status)
	assert.InDelta(t, 0.25, m.fraction(), 1e-9)

	m.Update(eventMsg{Name: "resolve", Status: driver.StageEnd, Elapsed: 3 * time.Millisecond})
	m.Update(eventMsg{Name: "cfg", Status: driver.StageSkipped, Err: context.Canceled})
	m.Update(eventMsg{Name: "unknown", Status: driver.StageStart})
	assert.Equal(t, "done", m.items[0].status)
	assert.Equal(t, 3*time.Millisecond, m.items[0].elapsed)
	assert.Equal(t, "skipped", m.items[1].status)
	assert.InDelta(t, 1.0, m.fraction(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "analyze")
	assert.Contains(t, view, "resolve")
	assert.Contains(t, view, "3ms")
}

func TestStageErrorAndDone(t *testing.T) {
	events := make(chan driver.StageEvent)
	m := NewProgressModel("run", []string{"lint"}, events).(*progressModel)
	m.Update(eventMsg{Name: "lint", Status: driver.StageEnd, Err: context.DeadlineExceeded})
	assert.Equal(t, "error", m.items[0].status)

	_, cmd := m.Update(doneMsg{})
	require.NotNil(t, cmd)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "done: run")

	close(events)
	assert.Equal(t, doneMsg{}, m.listenForEvent()())
}

func TestCtrlCQuits(t *testing.T) {
	m := NewProgressModel("run", []string{"lint"}, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdefghij", 2))
}
