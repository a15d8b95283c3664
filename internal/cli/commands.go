package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/Makepad-fr/rolodex/internal/contacts"
	"github.com/Makepad-fr/rolodex/internal/model"
	"github.com/Makepad-fr/rolodex/internal/tui"
	"github.com/Makepad-fr/rolodex/internal/ui"
)

const notesWidth = 60

func doList(ctx context.Context, args []string, d Deps, opt Options) int {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(d.Stderr)
	plain := fs.Bool("plain", false, "print a panel instead of the interactive list")
	sortBy := fs.String("sort", "", "order by field")
	query := fs.String("q", "", "filter by text")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if code := refresh(ctx, d); code != 0 {
		return code
	}
	if *sortBy != "" {
		if code := applySort(d, *sortBy); code != 0 {
			return code
		}
	} else if f := d.Store.SortField(); f != "" {
		_ = d.Store.Sort(f)
	}
	if *query != "" {
		d.Store.SetSearchQuery(*query)
	}

	if !*plain {
		return runTUI(ctx, d, opt)
	}
	printContacts(d.Stdout, "Contacts", d.Store.Filtered(), d.Store.Count(), opt)
	return 0
}

func runTUI(ctx context.Context, d Deps, opt Options) int {
	topts := tui.Options{Store: d.Store, UndoWindow: opt.UndoWindow, Log: d.Log}
	if d.Subscribe != nil {
		sub, err := d.Subscribe(ctx)
		if err != nil {
			ui.Warn(d.Stderr, "live updates unavailable: "+err.Error())
		} else {
			defer sub.Close()
			topts.Events = sub.Events()
		}
	}
	if err := tui.Run(ctx, topts); err != nil {
		ui.Fail(d.Stderr, "tui: "+err.Error())
		return 1
	}
	return 0
}

func doTrash(ctx context.Context, d Deps) int {
	if err := d.Store.FetchTrash(ctx); err != nil {
		ui.Fail(d.Stderr, "trash: "+d.Store.LastError())
		return 1
	}
	list := d.Store.Trash()
	t := ui.Current()
	lines := []string{
		fmt.Sprintf("%s  %s %d", ui.C(t.Title, "Trash"), ui.C(t.Error, t.SymTrash), len(list)),
		"",
	}
	lines = append(lines, contactLines(list)...)
	lines = append(lines, "", ui.Dim("Tip: bring one back with `rolodex restore <id>`"))
	ui.Panel(d.Stdout, lines)
	return 0
}

func doShow(ctx context.Context, id int64, d Deps) int {
	c, err := d.Store.Get(ctx, id)
	if err != nil {
		ui.Fail(d.Stderr, fmt.Sprintf("show #%d: %s", id, d.Store.LastError()))
		return 1
	}
	ui.Panel(d.Stdout, detailLines(c))
	return 0
}

func doSearch(ctx context.Context, args []string, d Deps, opt Options) int {
	if code := refresh(ctx, d); code != 0 {
		return code
	}
	q := strings.Join(args, " ")
	d.Store.SetSearchQuery(q)
	printContacts(d.Stdout, fmt.Sprintf("Search %q", q), d.Store.Filtered(), d.Store.Count(), opt)
	return 0
}

func doAdd(ctx context.Context, args []string, d Deps) int {
	p, err := parseAssignments(args)
	if err != nil {
		ui.Fail(d.Stderr, "add: "+err.Error())
		return 2
	}
	c, err := d.Store.Add(ctx, p)
	if err != nil {
		ui.Fail(d.Stderr, "add: "+d.Store.LastError())
		return 1
	}
	ui.OK(d.Stdout, fmt.Sprintf("added #%d %s", c.ID, c.FullName()))
	return 0
}

func doEdit(ctx context.Context, id int64, args []string, d Deps) int {
	p, err := parseAssignments(args)
	if err != nil {
		ui.Fail(d.Stderr, "edit: "+err.Error())
		return 2
	}
	if err := d.Store.Update(ctx, id, p); err != nil {
		ui.Fail(d.Stderr, fmt.Sprintf("edit #%d: %s", id, d.Store.LastError()))
		return 1
	}
	ui.OK(d.Stdout, fmt.Sprintf("updated #%d", id))
	return 0
}

func doRemove(ctx context.Context, ids []int64, d Deps) int {
	if code := refresh(ctx, d); code != 0 {
		return code
	}

	if len(ids) == 1 {
		err := d.Store.Delete(ctx, ids[0], false)
		switch {
		case errors.Is(err, contacts.ErrNotInList):
			ui.Fail(d.Stderr, fmt.Sprintf("rm: no contact #%d", ids[0]))
			fmt.Fprintln(d.Stderr, ui.Dim("Hint: run `rolodex ls -plain` to see valid ids"))
			return 2
		case err != nil:
			ui.Fail(d.Stderr, fmt.Sprintf("rm #%d: %s", ids[0], d.Store.LastError()))
			return 1
		}
		ui.OK(d.Stdout, fmt.Sprintf("moved #%d to the trash", ids[0]))
		return 0
	}

	var present []int64
	for _, id := range ids {
		if d.Store.Contains(id) {
			present = append(present, id)
			continue
		}
		ui.Warn(d.Stderr, fmt.Sprintf("skipping #%d: not in your contacts", id))
	}
	if len(present) == 0 {
		return 2
	}
	d.Store.BulkDeleteOptimistic(present)
	res := d.Store.BulkDelete(ctx, present)

	fmt.Fprintln(d.Stdout, ui.Dim(ui.ProgressBar(res.Count, len(present), 20)))
	if res.Count > 0 {
		ui.OK(d.Stdout, fmt.Sprintf("moved %d contacts to the trash", res.Count))
	}
	if len(res.Failed) > 0 {
		ui.Fail(d.Stderr, "could not delete "+joinIDs(res.Failed))
		return 1
	}
	return 0
}

func doRestore(ctx context.Context, ids []int64, d Deps) int {
	if err := d.Store.FetchTrash(ctx); err != nil {
		ui.Fail(d.Stderr, "restore: "+d.Store.LastError())
		return 1
	}
	if len(ids) == 1 {
		if err := d.Store.Restore(ctx, ids[0]); err != nil {
			ui.Fail(d.Stderr, fmt.Sprintf("restore #%d: %s", ids[0], d.Store.LastError()))
			return 1
		}
		ui.OK(d.Stdout, fmt.Sprintf("restored #%d", ids[0]))
		return 0
	}

	d.Store.ClearTrashSelection()
	for _, id := range ids {
		if !d.Store.IsTrashSelected(id) {
			d.Store.ToggleTrashSelect(id)
		}
	}
	res := d.Store.BulkRestore(ctx)
	if res.Count > 0 {
		ui.OK(d.Stdout, fmt.Sprintf("restored %d contacts", res.Count))
	}
	if len(res.Failed) > 0 {
		ui.Fail(d.Stderr, "could not restore "+joinIDs(res.Failed))
		return 1
	}
	return 0
}

func doSort(ctx context.Context, field string, d Deps, opt Options) int {
	if code := refresh(ctx, d); code != 0 {
		return code
	}
	if code := applySort(d, field); code != 0 {
		return code
	}
	title := fmt.Sprintf("Contacts by %s", d.Store.SortField())
	printContacts(d.Stdout, title, d.Store.Contacts(), d.Store.Count(), opt)
	return 0
}

func doWatch(ctx context.Context, d Deps) int {
	if d.Subscribe == nil {
		ui.Fail(d.Stderr, "watch: no stream configured")
		return 2
	}
	if code := refresh(ctx, d); code != 0 {
		return code
	}
	sub, err := d.Subscribe(ctx)
	if err != nil {
		ui.Fail(d.Stderr, "watch: "+err.Error())
		return 1
	}
	defer sub.Close()

	fmt.Fprintln(d.Stdout, ui.Dim(fmt.Sprintf("watching %d contacts, ctrl-c to stop", d.Store.Count())))
	err = d.Store.Listen(ctx, sub.Events(), func(ev model.Event) {
		fmt.Fprintln(d.Stdout, eventLine(ev))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		ui.Fail(d.Stderr, "watch: "+err.Error())
		return 1
	}
	if serr := sub.Err(); serr != nil {
		ui.Fail(d.Stderr, "watch: "+serr.Error())
		return 1
	}
	return 0
}

// refresh loads the active list. When the server is unreachable but a
// cached copy exists, the cached copy is used with a warning.
func refresh(ctx context.Context, d Deps) int {
	if err := d.Store.FetchAll(ctx); err != nil {
		if d.Store.Count() > 0 {
			ui.Warn(d.Stderr, "showing cached contacts: "+d.Store.LastError())
			return 0
		}
		ui.Fail(d.Stderr, "load: "+d.Store.LastError())
		return 1
	}
	return 0
}

func applySort(d Deps, name string) int {
	f, err := model.ParseField(name)
	if err == nil {
		err = d.Store.Sort(f)
	}
	if err != nil {
		ui.Fail(d.Stderr, "sort: "+err.Error())
		return 2
	}
	return 0
}

// parseAssignments reads field=value pairs into a payload.
func parseAssignments(args []string) (model.Payload, error) {
	var p model.Payload
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return p, fmt.Errorf("expected field=value, got %q", a)
		}
		f, err := model.ParseField(name)
		if err != nil {
			return p, err
		}
		if err := p.Set(f, strings.TrimSpace(value)); err != nil {
			return p, err
		}
	}
	if p.Empty() {
		return p, errors.New("nothing to set")
	}
	return p, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("#%d", id))
	}
	return strings.Join(parts, ", ")
}

// -------------- rendering helpers --------------

func printContacts(w io.Writer, title string, list []model.Contact, total int, opt Options) {
	t := ui.Current()
	header := fmt.Sprintf("%s  %s %d  %s %d",
		ui.C(t.Title, title),
		ui.C(t.Accent, "Shown"), len(list),
		ui.C(t.Muted, "Total"), total,
	)
	lines := []string{header, ""}
	if opt.Group {
		lines = append(lines, groupLines(list)...)
	} else {
		lines = append(lines, contactLines(list)...)
	}
	lines = append(lines, "", ui.Dim("Tip: add with `rolodex add first=Ada email=ada@example.com`"))
	ui.Panel(w, lines)
}

func contactLines(list []model.Contact) []string {
	if len(list) == 0 {
		return []string{ui.Dim("no contacts")}
	}
	t := ui.Current()
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, fmt.Sprintf("%s %s %-24s %-28s %s",
			ui.Dim(fmt.Sprintf("%4d", c.ID)),
			ui.C(t.Accent, t.SymPerson),
			ui.Truncate(c.FullName(), 24),
			ui.Truncate(c.Email, 28),
			ui.C(t.Muted, ui.Truncate(c.Company, 20)),
		))
	}
	return out
}

func groupLines(list []model.Contact) []string {
	groups := map[string][]model.Contact{}
	for _, c := range list {
		groups[c.Company] = append(groups[c.Company], c)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)

	var lines []string
	for i, name := range names {
		if i > 0 {
			lines = append(lines, "")
		}
		label := name
		if label == "" {
			label = "(no company)"
		}
		lines = append(lines, ui.C(ui.Current().Accent, label))
		lines = append(lines, contactLines(groups[name])...)
	}
	if len(lines) == 0 {
		return contactLines(nil)
	}
	return lines
}

func detailLines(c model.Contact) []string {
	t := ui.Current()
	field := func(label, value string) string {
		if value == "" {
			value = ui.Dim("—")
		}
		return fmt.Sprintf("%s %s", ui.C(t.Muted, fmt.Sprintf("%-9s", label)), value)
	}
	lines := []string{
		ui.C(t.Title, c.FullName()) + ui.Dim(fmt.Sprintf("  #%d", c.ID)),
		"",
		field("email", c.Email),
		field("phone", c.PhoneNumber),
		field("company", c.Company),
	}
	if c.Notes != "" {
		lines = append(lines, "", ui.C(t.Muted, "notes"))
		lines = append(lines, strings.Split(wordwrap.String(c.Notes, notesWidth), "\n")...)
	}
	lines = append(lines, "", ui.Dim(fmt.Sprintf("created %s  updated %s", stamp(c.CreatedAt.IsZero(), c.CreatedAt.Format("2006-01-02")), stamp(c.UpdatedAt.IsZero(), c.UpdatedAt.Format("2006-01-02")))))
	return lines
}

func stamp(zero bool, s string) string {
	if zero {
		return "?"
	}
	return s
}

func eventLine(ev model.Event) string {
	t := ui.Current()
	color := t.Accent
	switch ev.Type {
	case model.EventAdd:
		color = t.Success
	case model.EventDelete:
		color = t.Error
	}
	name := ev.Data.FullName()
	if name == "" {
		name = ui.Dim("(no name)")
	}
	return fmt.Sprintf("%s #%d %s", ui.C(color, fmt.Sprintf("%-6s", ev.Type)), ev.Data.ID, name)
}
