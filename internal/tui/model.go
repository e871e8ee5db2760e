// Package tui is a terminal formation editor on top of internal/editor. The
// stage is drawn as a character grid; dancers move with the arrow keys or by
// dragging them with the mouse.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"choreo-backend/internal/editor"
	"choreo-backend/internal/model"
)

// Stage grid size in terminal cells
const (
	GridWidth  = 51
	GridHeight = 21

	// Step is how far one arrow key press moves a dancer, in percent.
	Step = 5.0

	// the stage starts below the title line and inside the border
	gridTop  = 2
	gridLeft = 1
)

const labels = "123456789abcdefghijk"

// savedMsg outcome of one autosave
type savedMsg struct{ err error }

// actionMsg outcome of a network action started from a key press
type actionMsg struct {
	status string
	err    error
}

// Model bubbletea model of the editor screen
type Model struct {
	ed       *editor.Editor
	selected int
	status   string
	err      error
	busy     bool
}

// New returns a model for a loaded editor.
func New(ed *editor.Editor) *Model {
	return &Model{ed: ed, status: "loaded"}
}

// Grid is the on-screen rectangle of the stage used for pointer conversion.
func Grid() editor.Rect {
	return editor.Rect{Left: gridLeft, Top: gridTop, Width: GridWidth - 1, Height: GridHeight - 1}
}

// Selected returns the dancer moved by the arrow keys.
func (m *Model) Selected() int {
	return m.selected
}

func (m *Model) Init() tea.Cmd {
	return waitForSave(m.ed.Saves())
}

// waitForSave delivers the next autosave outcome.
func waitForSave(saves <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-saves
		if !ok {
			return nil
		}
		return savedMsg{err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case savedMsg:
		m.setResult("saved", msg.err)
		return m, waitForSave(m.ed.Saves())
	case actionMsg:
		m.busy = false
		m.setResult(msg.status, msg.err)
		m.selected = min(m.selected, max(m.dancers()-1, 0))
		return m, nil
	}
	return m, nil
}

func (m *Model) setResult(status string, err error) {
	m.err = err
	if err == nil {
		m.status = status
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return tea.Quit
	case "tab":
		if n := m.dancers(); n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case "shift+tab":
		if n := m.dancers(); n > 0 {
			m.selected = (m.selected + n - 1) % n
		}
	case "up", "k":
		m.nudge(0, -Step)
	case "down", "j":
		m.nudge(0, Step)
	case "left", "h":
		m.nudge(-Step, 0)
	case "right", "l":
		m.nudge(Step, 0)
	case "n":
		return m.action("next formation", func(ctx context.Context) error { return m.ed.Next(ctx) })
	case "p":
		return m.action("previous formation", func(ctx context.Context) error { return m.ed.Prev(ctx) })
	case "a":
		return m.action("formation added", func(ctx context.Context) error {
			_, err := m.ed.AddFormation(ctx)
			return err
		})
	case "d":
		return m.action("formation deleted", m.ed.DeleteFormation)
	case "+", "=":
		return m.resize(1)
	case "-":
		return m.resize(-1)
	case "s":
		return m.action("saved", m.ed.Flush)
	case "r":
		return m.action("refreshed", m.ed.Refresh)
	}
	return nil
}

func (m *Model) nudge(dx, dy float64) {
	f, ok := m.ed.Current()
	if !ok {
		return
	}
	for _, p := range f.Positions {
		if p.DancerIndex == m.selected {
			_, err := m.ed.MoveDancer(p.DancerIndex, p.X+dx, p.Y+dy)
			m.setResult("moved", err)
			return
		}
	}
}

func (m *Model) resize(delta int) tea.Cmd {
	n := m.ed.Dance().NumberOfDancers + delta
	return m.action(fmt.Sprintf("%d dancers", n), func(ctx context.Context) error {
		return m.ed.UpdateInfo(ctx, model.DanceUpdate{NumberOfDancers: &n})
	})
}

// action runs a network operation off the update loop.
func (m *Model) action(status string, fn func(ctx context.Context) error) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.status = "working..."
	return func() tea.Msg {
		return actionMsg{status: status, err: fn(context.Background())}
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	x, y := float64(msg.X), float64(msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		dancer, ok := m.dancerAt(msg.X, msg.Y)
		if !ok {
			return
		}
		m.selected = dancer
		m.setResult("dragging", m.ed.BeginDrag(dancer))
	case tea.MouseActionMotion:
		if m.ed.Dragging() < 0 {
			return
		}
		_, err := m.ed.DragTo(x, y, Grid())
		m.setResult("dragging", err)
	case tea.MouseActionRelease:
		if m.ed.Dragging() < 0 {
			return
		}
		_, err := m.ed.DragTo(x, y, Grid())
		m.ed.EndDrag()
		m.setResult("moved", err)
	}
}

// dancerAt finds the dancer drawn at terminal cell (x, y).
func (m *Model) dancerAt(x, y int) (int, bool) {
	f, ok := m.ed.Current()
	if !ok {
		return 0, false
	}
	for _, p := range f.Positions {
		col, row := cell(p)
		if col+gridLeft == x && row+gridTop == y {
			return p.DancerIndex, true
		}
	}
	return 0, false
}

func (m *Model) dancers() int {
	return m.ed.Dance().NumberOfDancers
}

// cell maps a stage position to a grid cell.
func cell(p model.Position) (col, row int) {
	col = int(math.Round(model.ClampPercent(p.X) / model.StageMax * (GridWidth - 1)))
	row = int(math.Round(model.ClampPercent(p.Y) / model.StageMax * (GridHeight - 1)))
	return col, row
}

func label(dancer int) string {
	if dancer >= 0 && dancer < len(labels) {
		return string(labels[dancer])
	}
	return "?"
}

func (m *Model) View() string {
	d := m.ed.Dance()
	if d == nil {
		return "loading...\n"
	}
	f, _ := m.ed.Current()

	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Name))
	b.WriteString("\n")
	b.WriteString(stageStyle.Render(m.renderStage(f)))
	b.WriteString("\n")

	saved := "saved"
	if m.ed.Dirty() {
		saved = "unsaved changes"
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("Formation %d/%d · %d dancers · dancer %s · %s · %s",
		m.ed.Cursor()+1, len(d.Formations), d.NumberOfDancers, label(m.selected), saved, m.status)))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab select · arrows/drag move · n/p formation · a add · d delete · +/- dancers · s save · r refresh · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderStage(f model.Formation) string {
	grid := make([][]string, GridHeight)
	for r := range grid {
		grid[r] = make([]string, GridWidth)
		for c := range grid[r] {
			grid[r][c] = floorStyle.Render("·")
		}
	}
	for _, p := range f.Positions {
		col, row := cell(p)
		style := dancerStyle
		if p.DancerIndex == m.selected {
			style = selectedStyle
		}
		grid[row][col] = style.Render(label(p.DancerIndex))
	}

	rows := make([]string, GridHeight)
	for r := range grid {
		rows[r] = strings.Join(grid[r], "")
	}
	return strings.Join(rows, "\n")
}
