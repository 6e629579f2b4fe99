package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"vidpress/internal/model"
)

// Run launches the TUI for the provided input files and options, blocking
// until all jobs finish or the user quits.
func Run(ctx context.Context, inputs []string, opts model.CLIOptions) error {
	m := NewModel(ctx, inputs, opts)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		var failed []string
		for _, id := range fm.jobOrder {
			js := fm.jobs[id]
			if js != nil && js.err != nil {
				if js.input != "" {
					failed = append(failed, fmt.Sprintf("- %s: %s", js.input, js.err.Error()))
				} else {
					failed = append(failed, fmt.Sprintf("- %s", js.err.Error()))
				}
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d job(s) failed:\n%s", len(failed), strings.Join(failed, "\n"))
		}
	}
	return nil
}
