// Package tui is the interactive contact browser.
//
// Store calls that reach the server run as tea.Cmds and report back as
// messages; push events arrive the same way, so every store mutation made
// by the UI happens inside Update.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Makepad-fr/rolodex/internal/contacts"
	"github.com/Makepad-fr/rolodex/internal/model"
)

// Options configure Run.
type Options struct {
	Store      *contacts.Store
	Events     <-chan model.Event // nil when live updates are off
	UndoWindow time.Duration      // defaults to 5s
	Log        *slog.Logger
}

type screen int

const (
	screenContacts screen = iota
	screenTrash
	screenDetail
)

// deferredDelete is a batch hidden from the list but not yet sent.
type deferredDelete struct {
	batch int
	ids   []int64
}

type (
	fetchedMsg      struct{ err error }
	trashFetchedMsg struct{ err error }
	savedMsg        struct {
		verb string
		c    model.Contact
		err  error
	}
	restoredMsg struct{ res contacts.BulkResult }
	commitMsg   struct{ batch int }
	deletedMsg  struct{ res contacts.BulkResult }
	eventMsg    struct{ ev model.Event }
	streamEnded struct{}
)

type keyMap struct {
	Add, Edit, Delete, Select, BulkDelete, Undo key.Binding
	Sort, Search, View, Open, Trash, Refresh   key.Binding
	Restore, BulkRestore, Back, Quit           key.Binding
}

func newKeyMap() keyMap {
	b := func(k, help string) key.Binding {
		return key.NewBinding(key.WithKeys(k), key.WithHelp(k, help))
	}
	return keyMap{
		Add:         b("a", "add"),
		Edit:        b("e", "edit"),
		Delete:      b("d", "delete"),
		Select:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		BulkDelete:  b("D", "delete selected"),
		Undo:        b("u", "undo"),
		Sort:        b("s", "sort"),
		Search:      b("/", "search"),
		View:        b("v", "view"),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Trash:       b("t", "trash"),
		Refresh:     b("g", "refresh"),
		Restore:     b("r", "restore"),
		BulkRestore: b("R", "restore selected"),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Model is the bubbletea model for the browser.
type Model struct {
	ctx    context.Context
	store  *contacts.Store
	events <-chan model.Event
	undo   time.Duration
	log    *slog.Logger
	keys   keyMap

	screen    screen
	contacts  list.Model
	trash     list.Model
	detail    viewport.Model
	search    textinput.Model
	searching bool
	form      *contactForm
	spin      spinner.Model
	busy      int

	deferred  []deferredDelete
	nextBatch int
	sortIdx   int

	status    string
	statusErr bool
	width     int
	height    int
	quitting  bool
}

// New builds the model. The store should already be hydrated or fetched.
func New(ctx context.Context, opts Options) Model {
	if opts.UndoWindow <= 0 {
		opts.UndoWindow = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}
	keys := newKeyMap()

	view := opts.Store.View()
	cl := list.New(nil, contactDelegate{view: view}, 0, 0)
	cl.SetShowHelp(true)
	cl.SetShowStatusBar(true)
	cl.SetFilteringEnabled(false)
	cl.Styles.Title = titleStyle
	cl.Styles.HelpStyle = helpStyle
	cl.Styles.PaginationStyle = helpStyle
	cl.SetStatusBarItemName("contact", "contacts")
	cl.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Delete, keys.Undo, keys.Search, keys.Trash}
	}
	cl.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Edit, keys.Delete, keys.Select, keys.BulkDelete,
			keys.Undo, keys.Sort, keys.Search, keys.View, keys.Open, keys.Trash, keys.Refresh}
	}

	tl := list.New(nil, contactDelegate{view: view, trash: true}, 0, 0)
	tl.SetShowHelp(true)
	tl.SetFilteringEnabled(false)
	tl.Styles.Title = titleStyle
	tl.Styles.HelpStyle = helpStyle
	tl.SetStatusBarItemName("contact", "contacts")
	tl.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Restore, keys.Select, keys.BulkRestore, keys.Back}
	}

	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "name, email, phone, company..."
	si.CharLimit = 100
	si.SetValue(opts.Store.SearchQuery())

	m := Model{
		ctx:      ctx,
		store:    opts.Store,
		events:   opts.Events,
		undo:     opts.UndoWindow,
		log:      opts.Log,
		keys:     keys,
		contacts: cl,
		trash:    tl,
		detail:   viewport.New(0, 0),
		search:   si,
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		busy:     1, // the fetch started by Init
		sortIdx:  -1,
	}
	if f := opts.Store.SortField(); f != "" {
		m.sortIdx = slices.Index(model.SortFields, f)
	}
	m.refresh()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.fetch(), m.listen())
}

// ---------- commands ----------

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg { return fetchedMsg{err: m.store.FetchAll(m.ctx)} }
}

func (m Model) fetchTrash() tea.Cmd {
	return func() tea.Msg { return trashFetchedMsg{err: m.store.FetchTrash(m.ctx)} }
}

func (m Model) listen() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamEnded{}
		}
		return eventMsg{ev: ev}
	}
}

func (m Model) commitAfter(batch int) tea.Cmd {
	return tea.Tick(m.undo, func(time.Time) tea.Msg { return commitMsg{batch: batch} })
}

func (m Model) sendDeletes(ids []int64) tea.Cmd {
	return func() tea.Msg { return deletedMsg{res: m.store.BulkDelete(m.ctx, ids)} }
}

// ---------- update ----------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case fetchedMsg:
		m.busy--
		if msg.err != nil {
			m.setError(m.store.LastError())
		}
		m.resort()
		m.refresh()
		return m, nil

	case trashFetchedMsg:
		m.busy--
		if msg.err != nil {
			m.setError(m.store.LastError())
		}
		m.refresh()
		return m, nil

	case savedMsg:
		m.busy--
		if msg.err != nil {
			m.setError(m.store.LastError())
		} else {
			m.setStatus(fmt.Sprintf("%s %s", msg.verb, msg.c.FullName()))
		}
		m.resort()
		m.refresh()
		return m, nil

	case restoredMsg:
		m.busy--
		if len(msg.res.Failed) > 0 {
			m.setError(fmt.Sprintf("Restored %d, %d failed", msg.res.Count, len(msg.res.Failed)))
		} else {
			m.setStatus(fmt.Sprintf("Restored %d", msg.res.Count))
		}
		m.refresh()
		return m, nil

	case commitMsg:
		i := slices.IndexFunc(m.deferred, func(d deferredDelete) bool { return d.batch == msg.batch })
		if i < 0 {
			return m, nil // undone in the meantime
		}
		ids := m.deferred[i].ids
		m.deferred = slices.Delete(m.deferred, i, i+1)
		ids = slices.DeleteFunc(slices.Clone(ids), func(id int64) bool { return !m.store.Pending(id) })
		if len(ids) == 0 {
			return m, nil
		}
		m.busy++
		return m, m.sendDeletes(ids)

	case deletedMsg:
		m.busy--
		if n := len(msg.res.Failed); n > 0 {
			m.setError(fmt.Sprintf("Failed to delete %d contact(s), restored", n))
		} else if msg.res.Count > 0 {
			m.setStatus(fmt.Sprintf("Moved %d to trash", msg.res.Count))
		}
		m.refresh()
		return m, nil

	case eventMsg:
		m.store.Apply(msg.ev)
		m.refresh()
		return m, m.listen()

	case streamEnded:
		m.events = nil
		m.setError("Live updates stopped")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenTrash:
		m.trash, cmd = m.trash.Update(msg)
	case screenDetail:
		m.detail, cmd = m.detail.Update(msg)
	default:
		m.contacts, cmd = m.contacts.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	if m.form != nil {
		return m.handleFormKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	switch m.screen {
	case screenDetail:
		if key.Matches(msg, m.keys.Back, m.keys.Quit, m.keys.Open) {
			m.screen = screenContacts
			return m, nil
		}
		return m.forward(msg)
	case screenTrash:
		return m.handleTrashKey(msg)
	}
	return m.handleContactsKey(msg)
}

func (m Model) handleContactsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Back):
		if m.store.SearchQuery() != "" {
			m.store.SetSearchQuery("")
			m.search.SetValue("")
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.form = newContactForm(nil)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Edit):
		if c, ok := m.current(); ok {
			m.form = newContactForm(&c)
			return m, textinput.Blink
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		c, ok := m.current()
		if !ok {
			return m, nil
		}
		if err := m.store.Delete(m.ctx, c.ID, true); err != nil {
			return m, nil
		}
		return m.deferDelete([]int64{c.ID}, "Deleted "+c.FullName())

	case key.Matches(msg, m.keys.Select):
		if c, ok := m.current(); ok {
			m.store.ToggleSelect(c.ID)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.BulkDelete):
		ids := m.store.SelectedIDs()
		if len(ids) == 0 {
			m.setStatus("Nothing selected")
			return m, nil
		}
		n := m.store.BulkDeleteOptimistic(ids)
		return m.deferDelete(ids, fmt.Sprintf("Deleted %d contacts", n))

	case key.Matches(msg, m.keys.Undo):
		if len(m.deferred) == 0 {
			m.setStatus("Nothing to undo")
			return m, nil
		}
		last := m.deferred[len(m.deferred)-1]
		m.deferred = m.deferred[:len(m.deferred)-1]
		n := m.store.UndoBulkDelete(last.ids)
		m.setStatus(fmt.Sprintf("Restored %d", n))
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Sort):
		m.sortIdx = (m.sortIdx + 1) % len(model.SortFields)
		f := model.SortFields[m.sortIdx]
		if err := m.store.Sort(f); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.setStatus("Sorted by " + string(f))
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.View):
		next := nextView(m.store.View())
		_ = m.store.SetView(next)
		m.contacts.SetDelegate(contactDelegate{view: next})
		m.trash.SetDelegate(contactDelegate{view: next, trash: true})
		return m, nil

	case key.Matches(msg, m.keys.Open):
		c, ok := m.current()
		if !ok {
			return m, nil
		}
		m.detail.SetContent(detailContent(c, m.detailWidth()))
		m.detail.GotoTop()
		m.screen = screenDetail
		return m, nil

	case key.Matches(msg, m.keys.Trash):
		m.screen = screenTrash
		m.busy++
		return m, tea.Batch(m.spin.Tick, m.fetchTrash())

	case key.Matches(msg, m.keys.Refresh):
		m.store.ClearError()
		m.setStatus("")
		m.busy++
		return m, tea.Batch(m.spin.Tick, m.fetch())
	}
	return m.forward(msg)
}

func (m Model) handleTrashKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Back, m.keys.Trash):
		m.screen = screenContacts
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if c, ok := m.currentTrash(); ok {
			m.store.ToggleTrashSelect(c.ID)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Restore):
		c, ok := m.currentTrash()
		if !ok {
			return m, nil
		}
		m.busy++
		return m, func() tea.Msg {
			err := m.store.Restore(m.ctx, c.ID)
			return savedMsg{verb: "Restored", c: c, err: err}
		}

	case key.Matches(msg, m.keys.BulkRestore):
		if !m.store.HasTrashSelected() {
			m.setStatus("Nothing selected")
			return m, nil
		}
		m.busy++
		return m, func() tea.Msg { return restoredMsg{res: m.store.BulkRestore(m.ctx)} }

	case key.Matches(msg, m.keys.Refresh):
		m.store.ClearError()
		m.setStatus("")
		m.busy++
		return m, tea.Batch(m.spin.Tick, m.fetchTrash())
	}
	return m.forward(msg)
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.store.SetSearchQuery("")
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.store.SetSearchQuery(m.search.Value())
	m.refresh()
	return m, cmd
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	submit, cancel, cmd := m.form.update(msg)
	if cancel {
		m.form = nil
		return m, nil
	}
	if !submit {
		return m, cmd
	}
	p, err := m.form.payload()
	if err != nil {
		m.form.err = err.Error()
		return m, nil
	}
	f := m.form
	m.form = nil
	m.busy++
	if f.editID == 0 {
		return m, tea.Batch(m.spin.Tick, func() tea.Msg {
			c, err := m.store.Add(m.ctx, p)
			return savedMsg{verb: "Added", c: c, err: err}
		})
	}
	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		err := m.store.Update(m.ctx, f.editID, p)
		return savedMsg{verb: "Updated", c: f.original, err: err}
	})
}

func (m Model) deferDelete(ids []int64, status string) (tea.Model, tea.Cmd) {
	m.nextBatch++
	m.deferred = append(m.deferred, deferredDelete{batch: m.nextBatch, ids: ids})
	m.setStatus(fmt.Sprintf("%s · u to undo", status))
	m.refresh()
	return m, m.commitAfter(m.nextBatch)
}

// quit sends every delete still inside its undo window before exiting.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	var ids []int64
	for _, d := range m.deferred {
		for _, id := range d.ids {
			if m.store.Pending(id) {
				ids = append(ids, id)
			}
		}
	}
	m.deferred = nil
	if len(ids) == 0 {
		return m, tea.Quit
	}
	m.log.Info("committing deletes before exit", "count", len(ids))
	return m, tea.Sequence(m.sendDeletes(ids), tea.Quit)
}

// ---------- state helpers ----------

func (m *Model) refresh() {
	m.contacts.SetItems(itemsFrom(m.store.Filtered(), m.store.IsSelected))
	m.trash.SetItems(itemsFrom(m.store.Trash(), m.store.IsTrashSelected))
	m.contacts.Title = m.header()
	m.trash.Title = fmt.Sprintf("%s   %s %d  %s %d",
		titleStyle.Render("Trash"),
		accentStyle.Render("Total"), m.store.TrashCount(),
		successStyle.Render(boxChecked), m.store.TrashSelectedCount(),
	)
}

func (m Model) header() string {
	h := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Contacts"),
		accentStyle.Render("Shown"), m.store.FilteredCount(),
		mutedStyle.Render("Total"), m.store.Count(),
		successStyle.Render(boxChecked), m.store.SelectedCount(),
	)
	if f := m.store.SortField(); f != "" {
		h += mutedStyle.Render("  by " + string(f))
	}
	return h
}

// resort keeps the chosen order after the list was replaced by the server's.
func (m *Model) resort() {
	if f := m.store.SortField(); f != "" {
		_ = m.store.Sort(f)
	}
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *Model) setError(s string)  { m.status, m.statusErr = s, true }

func (m *Model) resize() {
	w, h := m.width-4, m.height-6
	if w < 20 {
		w = 20
	}
	if h < 5 {
		h = 5
	}
	m.contacts.SetSize(w, h)
	m.trash.SetSize(w, h)
	m.detail.Width, m.detail.Height = w, h
}

func (m Model) detailWidth() int {
	if m.detail.Width > 0 {
		return m.detail.Width
	}
	return 60
}

func (m Model) current() (model.Contact, bool) {
	it, ok := m.contacts.SelectedItem().(contactItem)
	return it.c, ok
}

func (m Model) currentTrash() (model.Contact, bool) {
	it, ok := m.trash.SelectedItem().(contactItem)
	return it.c, ok
}

// ---------- view ----------

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var content string
	switch m.screen {
	case screenTrash:
		content = m.trash.View()
	case screenDetail:
		content = m.detail.View() + "\n" + helpStyle.Render("↑/↓ scroll · esc back")
	default:
		content = m.contacts.View()
	}
	if m.searching || m.store.SearchQuery() != "" {
		content = m.search.View() + "\n" + content
	}
	if m.form != nil {
		content += "\n" + m.form.view()
	}
	content += "\n" + m.statusLine()
	return panelStyle().Render(content)
}

func (m Model) statusLine() string {
	var parts []string
	if m.busy > 0 || m.store.Loading() || m.store.TrashLoading() {
		parts = append(parts, m.spin.View())
	}
	switch {
	case m.status == "":
	case m.statusErr:
		parts = append(parts, errorStyle.Render(m.status))
	default:
		parts = append(parts, successStyle.Render(m.status))
	}
	if n := len(m.deferred); n > 0 {
		parts = append(parts, pendingStyle.Render(fmt.Sprintf("%d pending", n)))
	}
	if m.events != nil {
		parts = append(parts, mutedStyle.Render("live"))
	}
	return strings.Join(parts, "  ")
}

func detailContent(c model.Contact, width int) string {
	row := func(label, v string) string {
		if v == "" {
			v = mutedStyle.Render("-")
		}
		return labelStyle.Render(label) + v
	}
	lines := []string{
		titleStyle.Render(c.FullName()) + mutedStyle.Render(fmt.Sprintf("  #%d", c.ID)),
		"",
		row("Email", c.Email),
		row("Phone", c.PhoneNumber),
		row("Company", c.Company),
	}
	if !c.CreatedAt.IsZero() {
		lines = append(lines, row("Created", c.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	if !c.UpdatedAt.IsZero() {
		lines = append(lines, row("Updated", c.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	if c.Notes != "" {
		lines = append(lines, "", mutedStyle.Render("Notes"), wordwrap.String(c.Notes, width))
	}
	return strings.Join(lines, "\n")
}
