package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"codescope/internal/driver"
	"codescope/internal/lint"
)

type taskPayload struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Summary string   `json:"summary"`
	Dot     bool     `json:"dot"`
	Stages  []string `json:"stages"`
}

func newTasksCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List analysis tasks and lint rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := taskPayloads()
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			case "text", "pretty", "":
				color, err := useColor(cmd, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				return renderTasks(cmd.OutOrStdout(), tasks, color)
			}
			return fmt.Errorf("unsupported format %q (must be text or json)", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|json)")
	return cmd
}

func taskPayloads() ([]taskPayload, error) {
	var out []taskPayload
	for _, t := range driver.Tasks() {
		stages, err := driver.PlannedStages([]string{t.Name})
		if err != nil {
			return nil, err
		}
		out = append(out, taskPayload{Name: t.Name, Aliases: t.Aliases, Summary: t.Summary, Dot: t.Graph, Stages: stages})
	}
	return out, nil
}

func renderTasks(w io.Writer, tasks []taskPayload, color bool) error {
	name := lipgloss.NewStyle().Bold(true)
	dim := lipgloss.NewStyle().Faint(true)
	if !color {
		name, dim = lipgloss.NewStyle(), lipgloss.NewStyle()
	}
	width := 0
	for _, t := range tasks {
		width = max(width, runewidth.StringWidth(t.Name))
	}
	var b strings.Builder
	for _, t := range tasks {
		pad := strings.Repeat(" ", width-runewidth.StringWidth(t.Name))
		b.WriteString("  " + name.Render(t.Name) + pad + "  " + t.Summary)
		if t.Dot {
			b.WriteString(" " + dim.Render("[dot]"))
		}
		b.WriteString("\n")
		if len(t.Aliases) > 0 {
			b.WriteString("  " + strings.Repeat(" ", width) + "  " + dim.Render("aliases: "+strings.Join(t.Aliases, ", ")) + "\n")
		}
	}
	b.WriteString("\nlint rules: " + strings.Join(lint.Names(), ", ") + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}
