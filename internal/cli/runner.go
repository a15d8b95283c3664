package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Makepad-fr/rolodex/internal/auth"
	"github.com/Makepad-fr/rolodex/internal/contacts"
	"github.com/Makepad-fr/rolodex/internal/live"
	"github.com/Makepad-fr/rolodex/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group      bool          // ls -plain groups rows by company
	UndoWindow time.Duration // how long the TUI keeps deletes undoable
}

// Deps are the collaborators a command may need. Stdin is only read by
// auth login.
type Deps struct {
	Store     *contacts.Store
	Auth      *auth.Store
	Subscribe func(ctx context.Context) (*live.Subscription, error) // nil disables live updates
	Log       *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, d Deps, opt Options) int {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	if len(args) == 0 {
		PrintHelp(d.Stderr)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(d.Stdout)
		return 0
	case "auth":
		return runAuth(a, d)
	}

	// Everything else talks to the server.
	if _, err := d.Auth.Require(); err != nil {
		ui.Fail(d.Stderr, "no token found. Set "+auth.EnvToken+" or run `rolodex auth login`")
		return 2
	}

	switch cmd {
	case "ls":
		return doList(ctx, a, d, opt)
	case "trash":
		return doTrash(ctx, d)
	case "show":
		if len(a) != 1 {
			return usage(d, "rolodex show <id>")
		}
		id, ok := parseID(d, "show", a[0])
		if !ok {
			return 2
		}
		return doShow(ctx, id, d)
	case "search":
		if len(a) == 0 {
			return usage(d, "rolodex search <query...>")
		}
		return doSearch(ctx, a, d, opt)
	case "add":
		if len(a) == 0 {
			return usage(d, "rolodex add field=value...")
		}
		return doAdd(ctx, a, d)
	case "edit":
		if len(a) < 2 {
			return usage(d, "rolodex edit <id> field=value...")
		}
		id, ok := parseID(d, "edit", a[0])
		if !ok {
			return 2
		}
		return doEdit(ctx, id, a[1:], d)
	case "rm":
		if len(a) == 0 {
			return usage(d, "rolodex rm <id>...")
		}
		ids, ok := parseIDs(d, "rm", a)
		if !ok {
			return 2
		}
		return doRemove(ctx, ids, d)
	case "restore":
		if len(a) == 0 {
			return usage(d, "rolodex restore <id>...")
		}
		ids, ok := parseIDs(d, "restore", a)
		if !ok {
			return 2
		}
		return doRestore(ctx, ids, d)
	case "sort":
		if len(a) != 1 {
			return usage(d, "rolodex sort <field>")
		}
		return doSort(ctx, a[0], d, opt)
	case "watch":
		return doWatch(ctx, d)
	}

	ui.Fail(d.Stderr, "unknown subcommand: "+cmd)
	fmt.Fprintln(d.Stderr)
	PrintHelp(d.Stderr)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `rolodex - contacts from the terminal

Usage:
  rolodex [flags] <subcommand> [args]

Subcommands:
  ls [-plain] [-sort field]      Browse contacts (interactive TUI)
  trash                          List trashed contacts
  show <id>                      Show one contact
  search <query...>              List contacts matching query
  add field=value...             Create a contact
  edit <id> field=value...       Change fields of a contact
  rm <id>...                     Move contacts to the trash
  restore <id>...                Bring contacts back from the trash
  sort <field>                   List contacts ordered by field
  watch                          Print live changes as they happen
  auth <login|logout|status|whoami>   Token authentication

Fields: firstName lastName email phoneNumber company notes
Sort also accepts: createdAt updatedAt

Examples:
  rolodex add first=Ada last=Lovelace email=ada@example.com
  rolodex ls -plain -sort lastName
  rolodex edit 12 company="Analytical Engines"
  rolodex rm 3 4 5
`)
}

func usage(d Deps, line string) int {
	ui.Fail(d.Stderr, "usage: "+line)
	return 2
}

func parseID(d Deps, cmd, s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		ui.Fail(d.Stderr, cmd+": not a contact id: "+s)
		return 0, false
	}
	return id, true
}

func parseIDs(d Deps, cmd string, args []string) ([]int64, bool) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, ok := parseID(d, cmd, s)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
