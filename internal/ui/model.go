package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"vidpress/internal/model"
	"vidpress/internal/pipeline"
	"vidpress/internal/progress"
	"vidpress/internal/util/deps"
	"vidpress/internal/util/format"
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	// App state (deps)
	depsChecked bool
	depsErr     error
	ffmpegPath  string
	ffprobePath string

	// Jobs
	inputs   []string
	opts     model.CLIOptions
	jobOrder []string
	jobs     map[string]*jobState
	workers  int

	// UI
	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, inputs []string, opts model.CLIOptions) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(inputs))
	order := make([]string, 0, len(inputs))
	for i, in := range inputs {
		id := toID(i)
		js := newJobState(id, in, sty)
		jobs[id] = &js
		order = append(order, id)
	}

	workers := opts.Jobs
	if workers <= 0 {
		workers = 2
	}

	return Model{
		ctx:      c,
		cancel:   cancel,
		inputs:   inputs,
		opts:     opts,
		jobs:     jobs,
		jobOrder: order,
		workers:  workers,
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	// Listen for reporter events
	cmds = append(cmds, m.listenEventsCmd())
	// Kick off dependency check
	cmds = append(cmds, m.checkDepsCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case depsCheckedMsg:
		m.depsChecked = true
		m.depsErr = msg.Err
		m.ffmpegPath = msg.FFmpegPath
		m.ffprobePath = msg.FFprobePath
		if m.depsErr != nil {
			// Mark all as errored
			for _, id := range m.jobOrder {
				js := m.jobs[id]
				js.stage = progress.StageError
				js.status = fmt.Sprintf("Dependency error: %v", m.depsErr)
				js.err = m.depsErr
				js.done = true
			}
			return m, tea.Quit
		}
		// Start initial workers
		cmd, allDone := m.startNextWorkers()
		if allDone {
			return m, tea.Quit
		}
		return m, cmd

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			js.status = u.Message
			if u.Bytes != nil {
				js.bytes = *u.Bytes
			}
		}
	case jobLogMsg:
		l := msg.L
		if js, ok := m.jobs[l.JobID]; ok {
			js.appendLog(strings.TrimRight(l.Line, "\r\n"))
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok {
			js.done = true
			js.err = r.Err
			if r.Err == nil {
				js.stage = progress.StageCompleted
				js.percent = 100
				js.outputPath = r.OutputPath
				js.bytes = r.Bytes
				if r.OutputPath != "" {
					name := filepath.Base(r.OutputPath)
					size := format.HumanizeBytes(r.Bytes)
					if m.opts.DryRun {
						js.status = fmt.Sprintf("Planned: %s (%s)", name, size)
					} else {
						js.status = fmt.Sprintf("Saved: %s (%s)", name, size)
					}
				} else {
					js.status = "Completed"
				}
			} else {
				js.stage = progress.StageError
				js.status = r.Err.Error()
				js.percent = -1
			}
			// Start next job if any remain
			cmd, allDone := m.startNextWorkers()
			if allDone {
				return m, tea.Quit
			}
			return m, tea.Batch(m.listenEventsCmd(), cmd)
		}
	case allDoneMsg:
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	// Keep listening for events
	cmds = append(cmds, m.listenEventsCmd())
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) checkDepsCmd() tea.Cmd {
	return func() tea.Msg {
		ff, ferr := deps.FindFFmpeg(m.opts.FFmpegPath)
		if ferr != nil {
			return depsCheckedMsg{Err: ferr}
		}
		fp, perr := deps.FindFFprobe()
		if perr != nil {
			return depsCheckedMsg{Err: perr}
		}
		return depsCheckedMsg{FFmpegPath: ff, FFprobePath: fp, Err: nil}
	}
}

// startNextWorkers marks queued jobs as started up to the worker limit and
// returns the commands that launch them. It is only ever called from Update,
// so the shared job states are written on the event loop alone; the returned
// commands merely run the jobs and speak back through the event channel.
// The boolean reports that every job has finished.
func (m Model) startNextWorkers() (tea.Cmd, bool) {
	running, done := 0, 0
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if js.done {
			done++
		} else if js.started {
			running++
		}
	}
	if done == len(m.jobOrder) {
		return nil, true
	}

	var cmds []tea.Cmd
	for idx, id := range m.jobOrder {
		if running >= m.workers {
			break
		}
		js := m.jobs[id]
		if js.started || js.done {
			continue
		}
		js.started = true
		js.status = "Queued"
		js.stage = progress.StageProbing
		running++
		jobID, input := id, m.inputs[idx]
		cmds = append(cmds, func() tea.Msg {
			m.runJob(jobID, input)
			return nil
		})
	}
	if len(cmds) == 0 {
		return nil, false
	}
	return tea.Batch(cmds...), false
}

func (m Model) runJob(jobID, input string) {
	rep := teaReporter{ch: m.eventCh}

	svc := pipeline.NewService(
		pipeline.WithFFprobePath(m.ffprobePath),
		pipeline.WithFFmpegPath(m.ffmpegPath),
		pipeline.WithCLIOptions(m.opts),
		pipeline.WithReporter(rep),
		pipeline.WithJobID(jobID),
	)

	if _, err := svc.RunJob(m.ctx, input); err != nil {
		rep.Result(progress.Result{JobID: jobID, Err: err})
	}
	// On success the service already emitted the final update and result.
}

type teaReporter struct {
	ch chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	// Block on completion messages to ensure they're delivered
	if u.Stage == progress.StageCompleted || u.Stage == progress.StageError {
		r.ch <- jobUpdateMsg{U: u}
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}
func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}
func (r teaReporter) Result(res progress.Result) {
	// Always block on Result messages - they're critical
	r.ch <- jobResultMsg{R: res}
}

func toID(i int) string {
	return "job-" + strconv.Itoa(i)
}
