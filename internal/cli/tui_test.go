package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m QuoteListModel, keys ...string) (QuoteListModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(QuoteListModel)
	}
	return m, cmd
}

func sampleRows() []QuoteRow {
	return []QuoteRow{
		{ID: "1", Member: "小明", Path: "/q/小明/a.png", Size: 2048},
		{ID: "2", Member: "小明", Path: "/q/小明/b.png", Size: 100},
		{ID: "3", Member: "小红", Path: "/q/小红/c.gif", Size: -1},
	}
}

func TestQuoteListNavigation(t *testing.T) {
	tests := []struct {
		keys []string
		want int
	}{
		{[]string{"down"}, 1},
		{[]string{"j", "j", "j", "j"}, 2},
		{[]string{"down", "up", "k"}, 0},
		{[]string{"j", "k", "j"}, 1},
	}
	for _, tt := range tests {
		m, _ := press(NewQuoteListModel(sampleRows(), nil), tt.keys...)
		if m.Cursor != tt.want {
			t.Errorf("%v: cursor = %d, want %d", tt.keys, m.Cursor, tt.want)
		}
	}
}

func TestQuoteListSelect(t *testing.T) {
	m, cmd := press(NewQuoteListModel(sampleRows(), nil), "j", "enter")
	if m.Selected == nil || m.Selected.ID != "2" {
		t.Fatalf("selected = %+v", m.Selected)
	}
	if cmd == nil {
		t.Error("enter should quit")
	}

	empty, cmd := press(NewQuoteListModel(nil, nil), "enter")
	if empty.Selected != nil || cmd != nil {
		t.Error("enter on an empty list should do nothing")
	}
}

func TestQuoteListQuit(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		if _, cmd := press(NewQuoteListModel(sampleRows(), nil), k); cmd == nil {
			t.Errorf("%q should quit", k)
		}
	}
}

func TestQuoteListDelete(t *testing.T) {
	var deleted []string
	del := func(id string) error {
		if id == "3" {
			return errors.New("disk on fire")
		}
		deleted = append(deleted, id)
		return nil
	}

	m, _ := press(NewQuoteListModel(sampleRows(), del), "d", "n")
	if len(m.Rows) != 3 || len(deleted) != 0 {
		t.Fatal("declining the prompt must keep the row")
	}

	m, _ = press(m, "j", "d")
	if !strings.Contains(m.View(), "delete 2? y/n") {
		t.Errorf("confirmation prompt missing:\n%s", m.View())
	}
	m, _ = press(m, "y")
	if len(m.Rows) != 2 || m.Deleted != 1 || deleted[0] != "2" {
		t.Fatalf("rows = %+v, deleted = %v", m.Rows, deleted)
	}
	if m.Rows[m.Cursor].ID != "3" {
		t.Errorf("cursor on %s after delete", m.Rows[m.Cursor].ID)
	}

	m, _ = press(m, "d", "y")
	if len(m.Rows) != 2 || !strings.Contains(m.View(), "disk on fire") {
		t.Errorf("failed delete should keep the row and show the error:\n%s", m.View())
	}

	m, _ = press(m, "k", "d", "y")
	if len(m.Rows) != 1 || m.Cursor != 0 {
		t.Errorf("rows = %+v, cursor = %d", m.Rows, m.Cursor)
	}
}

func TestQuoteListDeleteDisabled(t *testing.T) {
	m, _ := press(NewQuoteListModel(sampleRows(), nil), "d", "y")
	if len(m.Rows) != 3 {
		t.Error("d without a delete func must do nothing")
	}
	if strings.Contains(m.View(), "d delete") {
		t.Error("help should not offer delete")
	}
}

func TestQuoteListView(t *testing.T) {
	view := NewQuoteListModel(sampleRows(), func(string) error { return nil }).View()
	for _, want := range []string{"Quotes", "d delete", "小红", "a.png", "2.0 KB", "missing", "[1/3]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	if !strings.Contains(NewQuoteListModel(nil, nil).View(), "no quotes left") {
		t.Error("empty view")
	}
}

func TestQuoteListScroll(t *testing.T) {
	rows := make([]QuoteRow, 10)
	for i := range rows {
		rows[i] = QuoteRow{ID: string(rune('a' + i)), Member: "m", Path: "p", Size: 1}
	}
	m := NewQuoteListModel(rows, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	m = next.(QuoteListModel)
	if m.Height != 5 {
		t.Fatalf("height = %d", m.Height)
	}
	m, _ = press(m, "j", "j", "j", "j", "j", "j")
	if m.Offset != 2 {
		t.Errorf("offset = %d, want 2", m.Offset)
	}
	m, _ = press(m, "k", "k", "k", "k", "k")
	if m.Offset != 1 {
		t.Errorf("offset = %d, want 1", m.Offset)
	}
}
