package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	listErrStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// QuoteListModel - Interactive quote browser
// =============================================================================

// QuoteRow is one quote shown in the browser.
type QuoteRow struct {
	ID     string
	Member string
	Path   string
	Size   int64 // -1 when the file is missing
}

// QuoteListModel is the bubbletea model for browsing a group's quotes.
type QuoteListModel struct {
	Rows     []QuoteRow
	Cursor   int
	Offset   int
	Height   int
	Selected *QuoteRow
	Deleted  int

	del     func(id string) error
	confirm bool
	err     error
}

// NewQuoteListModel creates a browser over rows. del removes a quote by
// ID; a nil del disables deletion.
func NewQuoteListModel(rows []QuoteRow, del func(id string) error) QuoteListModel {
	return QuoteListModel{
		Rows:   rows,
		Height: 15,
		del:    del,
	}
}

func (m QuoteListModel) Init() tea.Cmd {
	return nil
}

func (m QuoteListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if m.confirm {
			m.confirm = false
			if key == "y" {
				m = m.deleteCurrent()
			}
			return m, nil
		}
		switch key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "enter":
			if len(m.Rows) == 0 {
				return m, nil
			}
			row := m.Rows[m.Cursor]
			m.Selected = &row
			return m, tea.Quit
		case "d":
			if m.del != nil && len(m.Rows) > 0 {
				m.confirm = true
				m.err = nil
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
		m.clampOffset()
	}
	return m, nil
}

func (m *QuoteListModel) move(delta int) {
	m.Cursor = min(max(m.Cursor+delta, 0), max(len(m.Rows)-1, 0))
	m.clampOffset()
}

func (m *QuoteListModel) clampOffset() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m QuoteListModel) deleteCurrent() QuoteListModel {
	row := m.Rows[m.Cursor]
	if err := m.del(row.ID); err != nil {
		m.err = err
		return m
	}
	rows := make([]QuoteRow, 0, len(m.Rows)-1)
	rows = append(rows, m.Rows[:m.Cursor]...)
	m.Rows = append(rows, m.Rows[m.Cursor+1:]...)
	m.Deleted++
	m.move(0)
	return m
}

func (m QuoteListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Quotes"))
	b.WriteString("\n")
	help := "↑/↓ navigate  ⏎ select  q quit"
	if m.del != nil {
		help = "↑/↓ navigate  ⏎ select  d delete  q quit"
	}
	b.WriteString(listDimStyle.Render(help))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(listDimStyle.Render("  no quotes left"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Rows))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		size := "missing"
		if r.Size >= 0 {
			size = formatBytes(int(r.Size))
		}
		rows = append(rows, []string{cursor, r.ID, r.Member, filepath.Base(r.Path), size})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Member", "File", "Size").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col >= 3 {
				base = base.Foreground(colorDim)
			}
			if m.Rows[idx].Size < 0 {
				return base.Foreground(colorRed)
			}
			if idx == m.Cursor {
				if col < 3 {
					return base.Foreground(colorGreen).Bold(true)
				}
				return base.Foreground(colorGray).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	switch {
	case m.confirm:
		b.WriteString(StyleWarning.Render(fmt.Sprintf("  delete %s? y/n", m.Rows[m.Cursor].ID)))
	case m.err != nil:
		b.WriteString(listErrStyle.Render("  " + m.err.Error()))
	default:
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))
	}

	return b.String()
}
