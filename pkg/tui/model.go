// Package tui is the interactive terminal browser over a roll session.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hazyhaar/electoral-roll/pkg/roll"
	"github.com/hazyhaar/electoral-roll/pkg/search"
)

// ViewMsg carries a new session view into the program.
type ViewMsg roll.View

// Input fields, in tab order.
const (
	fieldSearch = iota
	fieldBooth
	fieldStation
	fieldVillage
	fieldCount
)

var fieldLabels = [fieldCount]string{"Search", "Booth", "Station", "Village"}

var sortCycle = []string{search.SortNone, search.SortName, search.SortSerial}

// Model is the browser's bubbletea model.
type Model struct {
	session *roll.Session
	inputs  [fieldCount]textinput.Model
	focus   int
	sortIdx int
	view    roll.View
	status  string
	width   int
	height  int
	styles  Styles
}

// New returns a model showing s's current view.
func New(s *roll.Session) Model {
	m := Model{
		session: s,
		view:    s.View(),
		styles:  DefaultStyles(),
		width:   100,
		height:  30,
	}
	placeholders := [fieldCount]string{"name or voter ID", "booth number", "polling station address", "village"}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 64
		ti.Width = 40
		m.inputs[i] = ti
	}
	m.inputs[fieldSearch].Focus()
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ViewMsg:
		m.view = roll.View(msg)
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "shift+tab":
			step := 1
			if msg.String() == "shift+tab" {
				step = fieldCount - 1
			}
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + step) % fieldCount
			return m, m.inputs[m.focus].Focus()
		case "pgdown", "ctrl+n":
			return m, m.pageCmd(1)
		case "pgup", "ctrl+p":
			return m, m.pageCmd(-1)
		case "ctrl+s":
			m.sortIdx = (m.sortIdx + 1) % len(sortCycle)
			return m, m.sortCmd(sortCycle[m.sortIdx])
		}
	}

	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		m.status = ""
		m.edit(m.focus, after)
	}
	return m, cmd
}

// edit forwards a field change to the session. The session debounces it
// and the resulting view arrives later as a ViewMsg.
func (m Model) edit(field int, value string) {
	switch field {
	case fieldSearch:
		m.session.SetSearch(value)
	case fieldBooth:
		m.session.SetFilter(search.FilterBoothNumber, value)
	case fieldStation:
		m.session.SetFilter(search.FilterPollingStationAddress, value)
	case fieldVillage:
		m.session.SetFilter(search.FilterVillage, value)
	}
}

type statusMsg string

// pageCmd moves one page off the event loop; the session publishes the new
// view through OnChange.
func (m Model) pageCmd(delta int) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		moved := s.NextPage
		if delta < 0 {
			moved = s.PrevPage
		}
		if !moved() {
			return statusMsg("no more pages")
		}
		return ViewMsg(s.View())
	}
}

func (m Model) sortCmd(order string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		if err := s.SetSort(order); err != nil {
			return statusMsg(err.Error())
		}
		return ViewMsg(s.View())
	}
}

// View renders the inputs, the current page and a footer.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Electoral roll"))
	sb.WriteString("\n\n")

	for i, in := range m.inputs {
		label := m.styles.Label
		if i == m.focus {
			label = m.styles.Focused
		}
		sb.WriteString(label.Render(fieldLabels[i]))
		sb.WriteString(in.View())
		sb.WriteString("\n")
	}
	if hint := m.facetHint(); hint != "" {
		sb.WriteString(m.styles.Muted.Render(hint))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	res := m.view.Result
	if res.TotalCount == 0 {
		sb.WriteString(m.styles.Muted.Render("No voters match."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.table(res))
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render(footer(m.view, sortLabel(sortCycle[m.sortIdx]))))
	if msg := m.status; msg != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render(msg))
	} else if m.view.Err != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render(m.view.Err))
	}
	return sb.String()
}

// facetHint lists the facet values that still match the focused filter
// field, so the user can see what to type. The facets come from the whole
// roll, not the filtered page.
func (m Model) facetHint() string {
	var (
		label  string
		values []string
		match  func(v, typed string) bool
	)
	fold := func(v, typed string) bool {
		return strings.Contains(strings.ToLower(v), strings.ToLower(typed))
	}
	facets := m.view.Facets
	switch m.focus {
	case fieldBooth:
		label, values, match = "booths", facets.BoothNumbers, strings.Contains
	case fieldStation:
		label, values, match = "stations", facets.PollingStationAddresses, fold
	case fieldVillage:
		label, values, match = "villages", facets.Villages, fold
	default:
		return ""
	}
	if len(values) == 0 {
		return ""
	}

	typed := m.inputs[m.focus].Value()
	var shown []string
	for _, v := range values {
		if typed == "" || match(v, typed) {
			shown = append(shown, v)
		}
	}
	if len(shown) == 0 {
		return fmt.Sprintf("%s: no match", label)
	}

	out := label + ":"
	for i, v := range shown {
		next := out + "  " + v
		if lipgloss.Width(next) > m.width-12 {
			return out + fmt.Sprintf("  (+%d more)", len(shown)-i)
		}
		out = next
	}
	return out
}

var columns = []struct {
	title string
	width int
}{
	{"Sr", 5},
	{"Name", 24},
	{"Voter ID", 12},
	{"Booth", 6},
	{"Village", 14},
	{"Polling station", 28},
}

func (m Model) table(res search.Result) string {
	var sb strings.Builder
	for _, c := range columns {
		sb.WriteString(m.styles.Header.Render(pad(c.title, c.width)))
		sb.WriteString(" ")
	}
	sb.WriteString("\n")

	rows := m.height - 14
	if rows < 5 {
		rows = 5
	}
	for i, v := range res.Items {
		if i >= rows {
			sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("... %d more on this page", len(res.Items)-rows)))
			sb.WriteString("\n")
			break
		}
		cells := []string{v.SerialNumber, v.Name, v.VoterID, v.BoothNumber, v.Village, v.PollingStationAddress}
		for j, c := range columns {
			sb.WriteString(m.styles.Cell.Render(pad(cells[j], c.width)))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func footer(v roll.View, sort string) string {
	res := v.Result
	return fmt.Sprintf("page %d/%d  showing %d of %d  sort: %s  |  tab field  pgup/pgdn page  ctrl+s sort  esc quit",
		res.Page.Page, max(res.TotalPages, 1), res.Shown, res.TotalCount, sort)
}

func sortLabel(order string) string {
	if order == search.SortNone {
		return "roll order"
	}
	return order
}

// pad fits s to exactly w cells, truncating with an ellipsis.
func pad(s string, w int) string {
	if lipgloss.Width(s) > w {
		r := []rune(s)
		for len(r) > 0 && lipgloss.Width(string(r))+1 > w {
			r = r[:len(r)-1]
		}
		s = string(r) + "…"
	}
	return s + strings.Repeat(" ", max(w-lipgloss.Width(s), 0))
}
