package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tonguebeat/gesture"
	"tonguebeat/sequencer"
)

// Grid symbols shared with the lane display.
const (
	stepEmpty    = '·'
	stepActive   = '●'
	stepPlayhead = '▶'
)

// muteKeys maps keyboard mute toggles to instrument lanes.
var muteKeys = map[string]string{
	"z": "kick",
	"x": "snare",
	"c": "hihat",
	"v": "tom",
	"b": "crash",
}

type Model struct {
	Manager  *sequencer.Manager
	Cond     *gesture.Conditioner
	quitting bool
}

type UpdateMsg struct{}

func NewModel(manager *sequencer.Manager, cond *gesture.Conditioner) Model {
	return Model{Manager: manager, Cond: cond}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Manager)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			m.Manager.Stop()
			return m, tea.Quit

		case "p":
			if m.Manager.Playing() {
				m.Manager.Stop()
			} else {
				m.Manager.Play()
			}

		case "+", "=":
			m.Manager.AdjustTempo(5)

		case "-", "_":
			m.Manager.AdjustTempo(-5)

		case "n":
			m.Manager.NextPattern()

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			m.Manager.QueuePattern(int(key[0] - '1'))

		default:
			if inst, ok := muteKeys[key]; ok {
				m.Manager.ToggleMute(inst)
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	step, playing, bpm, pattern, next := m.Manager.GetState()
	pat := m.Manager.CurrentPattern()
	cs := m.Cond.Latest()

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	laneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	playState := "STOP"
	if playing {
		playState = "PLAY"
	}
	queued := ""
	if next != pattern {
		queued = fmt.Sprintf(" next:%d", next+1)
	}
	header := headerStyle.Render(fmt.Sprintf(
		"tonguebeat  %s  %3.0fbpm  step:%02d  pattern %d/%d %s%s",
		playState, bpm, step, pattern+1, m.Manager.BankLen(), pat.Name, queued))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	for _, inst := range sequencer.InstrumentPriority {
		lane, ok := pat.Lanes[inst]
		style := laneStyle
		tag := "  "
		if m.Manager.Muted(inst) || !m.Manager.Enabled(inst) {
			style = mutedStyle
			tag = " M"
			if !m.Manager.Enabled(inst) {
				tag = " X"
			}
		}

		var row strings.Builder
		fmt.Fprintf(&row, "%-6s%s ", inst, tag)
		for i := 0; i < sequencer.StepsPerPattern; i++ {
			ch := stepEmpty
			if ok && lane[i].Active {
				ch = stepActive
			}
			if playing && i == step {
				ch = stepPlayhead
			}
			row.WriteRune(ch)
			row.WriteRune(' ')
		}
		out.WriteString(style.Render(row.String()))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.gestureLine(cs)))
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render("p:play  +/-:tempo  n/1-7:pattern  zxcvb:mute  q:quit"))
	return out.String()
}

// gestureLine summarizes the live control snapshot.
func (m Model) gestureLine(cs *gesture.ControlState) string {
	left := "L:--"
	if cs.LeftPresent {
		left = fmt.Sprintf("L:h=%.2f v=%.2f", cs.PitchHeight, cs.Volume)
	}
	right := "R:--"
	if cs.RightPresent {
		var fingers strings.Builder
		for f := gesture.Thumb; f < gesture.NumFingers; f++ {
			if cs.FingerMask.Has(f) {
				fingers.WriteRune('|')
			} else {
				fingers.WriteRune('.')
			}
		}
		right = "R:" + fingers.String()
	}
	return fmt.Sprintf("%s  %s  bpm:%s", left, right, cs.Lock)
}
