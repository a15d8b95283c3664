package tui

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/rolodex/internal/contacts"
	"github.com/Makepad-fr/rolodex/internal/model"
)

// contactItem adapts a Contact to bubbles/list.Item.
type contactItem struct {
	c        model.Contact
	selected bool
}

func (i contactItem) Title() string       { return i.c.FullName() }
func (i contactItem) Description() string { return i.c.Email }
func (i contactItem) FilterValue() string { return i.c.FullName() }

func itemsFrom(rows []model.Contact, selected func(int64) bool) []list.Item {
	out := make([]list.Item, 0, len(rows))
	for _, c := range rows {
		out = append(out, contactItem{c: c, selected: selected(c.ID)})
	}
	return out
}

// nextView is the density after v in toggle order.
func nextView(v contacts.ViewMode) contacts.ViewMode {
	i := slices.Index(contacts.ViewModes, v)
	return contacts.ViewModes[(i+1)%len(contacts.ViewModes)]
}

// contactDelegate renders a contact at the density of view. Grid cards are
// four lines with a blank line between them.
type contactDelegate struct {
	view  contacts.ViewMode
	trash bool
}

func (d contactDelegate) Height() int {
	switch d.view {
	case contacts.ViewSmall:
		return 1
	case contacts.ViewGrid:
		return 4
	}
	return 2
}

func (d contactDelegate) Spacing() int {
	if d.view == contacts.ViewGrid {
		return 1
	}
	return 0
}

func (d contactDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d contactDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(contactItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	if it.selected {
		box = successStyle.Render(boxChecked)
	}
	name := it.c.FullName()
	if name == "" {
		name = mutedStyle.Render("(no name)")
	}
	if d.trash {
		name = trashStyle.Render(name)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}

	switch d.view {
	case contacts.ViewSmall:
		fmt.Fprintf(w, "%s%s %-28s %s", prefix, box, name, mutedStyle.Render(it.c.Email))
		return
	case contacts.ViewGrid:
		fmt.Fprintf(w, "%s%s %s\n", prefix, box, name)
		fmt.Fprintf(w, "     %s\n", accentStyle.Render(it.c.Email))
		fmt.Fprintf(w, "     %s\n", cardLine("phone", it.c.PhoneNumber))
		fmt.Fprintf(w, "     %s", cardLine("company", it.c.Company))
		return
	}
	fmt.Fprintf(w, "%s%s %s  %s\n", prefix, box, name, accentStyle.Render(it.c.Email))
	var meta []string
	for _, s := range []string{it.c.Company, it.c.PhoneNumber} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	fmt.Fprintf(w, "     %s", mutedStyle.Render(strings.Join(meta, " · ")))
}

func cardLine(label, value string) string {
	if value == "" {
		value = "-"
	}
	return mutedStyle.Render(fmt.Sprintf("%-8s", label)) + value
}
