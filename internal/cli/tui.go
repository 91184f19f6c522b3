package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/microsim/cosem/pkg/catalog"
)

// ViewListModel is the bubbletea model behind "cosem views --pick".
// Height is the number of table rows shown; Offset is the first shown row.
type ViewListModel struct {
	Views    []catalog.View
	Cursor   int
	Selected *catalog.View
	Height   int
	Offset   int
}

func NewViewListModel(views []catalog.View) ViewListModel {
	return ViewListModel{Views: views, Height: 15}
}

func (m ViewListModel) Init() tea.Cmd { return nil }

// move shifts the cursor by delta, clamped to the list, and scrolls so the
// cursor stays visible.
func (m *ViewListModel) move(delta int) {
	if len(m.Views) == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), len(m.Views)-1)
	switch {
	case m.Cursor < m.Offset:
		m.Offset = m.Cursor
	case m.Cursor >= m.Offset+m.Height:
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m ViewListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "home", "g":
			m.move(-len(m.Views))
		case "end", "G":
			m.move(len(m.Views))
		case "enter":
			if m.Cursor < len(m.Views) {
				v := m.Views[m.Cursor]
				m.Selected = &v
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ViewListModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Select View") + "\n")
	b.WriteString(StyleDim.Render("↑/↓ move  g/G first/last  ⏎ load  q quit") + "\n\n")

	end := min(m.Offset+m.Height, len(m.Views))
	var rows [][]string
	for i := m.Offset; i < end; i++ {
		v := m.Views[i]
		mark := "  "
		if i == m.Cursor {
			mark = "▸ "
		}
		rows = append(rows, []string{mark, v.Name, strings.Join(v.Sources, ", "), formatPosition(v.Position)})
	}

	current := lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("", "View", "Sources", "Position (nm)").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case m.Offset+row == m.Cursor:
				return current
			case col >= 2:
				return StyleDim
			}
			return lipgloss.NewStyle()
		})
	b.WriteString(t.Render() + "\n")

	if m.Cursor < len(m.Views) && m.Views[m.Cursor].Description != "" {
		b.WriteString(StyleValue.Render(m.Views[m.Cursor].Description) + "\n")
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("[%d/%d]", min(m.Cursor+1, len(m.Views)), len(m.Views))))
	return b.String()
}

// pickView runs the picker; a nil view means the user quit.
func pickView(views []catalog.View) (*catalog.View, error) {
	final, err := tea.NewProgram(NewViewListModel(views)).Run()
	if err != nil {
		return nil, err
	}
	return final.(ViewListModel).Selected, nil
}
