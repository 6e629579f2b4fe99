package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"vidpress/internal/progress"
)

type jobState struct {
	id    string
	input string

	stage  progress.Stage
	status string
	err    error
	done   bool

	outputPath string
	bytes      int64
	percent    float64 // -1 means unknown

	spinner spinner.Model
	bar     bubblesprogress.Model

	started bool

	// Recent log lines (kept small)
	logsRing []string
}

const maxLogLines = 1000

// appendLog keeps the most recent maxLogLines lines. Trimming shifts in
// place so the backing array stays at its steady-state size instead of
// growing for the whole life of an encode.
func (j *jobState) appendLog(line string) {
	if len(j.logsRing) >= maxLogLines {
		copy(j.logsRing, j.logsRing[1:])
		j.logsRing = j.logsRing[:maxLogLines-1]
	}
	j.logsRing = append(j.logsRing, line)
}

func newJobState(id, input string, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      id,
		input:   input,
		stage:   progress.StageProbing,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}
