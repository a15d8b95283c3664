package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/rolodex/internal/model"
)

var formLabels = map[model.Field]string{
	model.FieldFirstName:   "First",
	model.FieldLastName:    "Last",
	model.FieldEmail:       "Email",
	model.FieldPhoneNumber: "Phone",
	model.FieldCompany:     "Company",
	model.FieldNotes:       "Notes",
}

// contactForm edits the text fields of one contact. editID is 0 when adding.
type contactForm struct {
	editID   int64
	original model.Contact
	fields   []model.Field
	inputs   []textinput.Model
	focus    int
	err      string
}

func newContactForm(c *model.Contact) *contactForm {
	f := &contactForm{fields: model.SearchFields}
	if c != nil {
		f.editID = c.ID
		f.original = *c
	}
	for i, field := range f.fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 200
		ti.Placeholder = formLabels[field]
		if c != nil {
			ti.SetValue(c.Text(field))
			ti.CursorEnd()
		}
		if i == 0 {
			ti.Focus()
		}
		f.inputs = append(f.inputs, ti)
	}
	return f
}

func (f *contactForm) title() string {
	if f.editID != 0 {
		return "Edit contact"
	}
	return "Add contact"
}

func (f *contactForm) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// update handles a key. It reports whether the user submitted or cancelled.
func (f *contactForm) update(msg tea.KeyMsg) (submit, cancel bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return false, true, nil
	case "tab", "down":
		return false, false, f.move(1)
	case "shift+tab", "up":
		return false, false, f.move(-1)
	case "ctrl+s":
		return true, false, nil
	case "enter":
		if f.focus == len(f.inputs)-1 {
			return true, false, nil
		}
		return false, false, f.move(1)
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return false, false, cmd
}

func (f *contactForm) value(field model.Field) string {
	for i, fl := range f.fields {
		if fl == field {
			return strings.TrimSpace(f.inputs[i].Value())
		}
	}
	return ""
}

// payload validates the inputs. For an edit only changed fields are sent.
func (f *contactForm) payload() (model.Payload, error) {
	if f.value(model.FieldFirstName) == "" && f.value(model.FieldLastName) == "" {
		return model.Payload{}, errors.New("a name is required")
	}
	if e := f.value(model.FieldEmail); e != "" && !strings.Contains(e, "@") {
		return model.Payload{}, errors.New("email looks invalid")
	}
	var p model.Payload
	for _, field := range f.fields {
		v := f.value(field)
		if f.editID != 0 && v == f.original.Text(field) {
			continue
		}
		if f.editID == 0 && v == "" {
			continue
		}
		_ = p.Set(field, v)
	}
	if f.editID != 0 && p.Empty() {
		return p, errors.New("nothing changed")
	}
	return p, nil
}

func (f *contactForm) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title()))
	if f.err != "" {
		b.WriteString("  " + errorStyle.Render(f.err))
	}
	b.WriteString("\n")
	for i, field := range f.fields {
		b.WriteString(labelStyle.Render(formLabels[field]))
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab next · enter on last field or ctrl+s save · esc cancel"))
	bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	return bar.Render(b.String())
}
