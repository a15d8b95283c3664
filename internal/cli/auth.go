package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Makepad-fr/rolodex/internal/auth"
	"github.com/Makepad-fr/rolodex/internal/ui"
)

func runAuth(a []string, d Deps) int {
	if len(a) == 0 {
		return usage(d, "rolodex auth <login|logout|status|whoami>")
	}
	switch a[0] {
	case "login":
		return doAuthLogin(d)
	case "logout":
		return doAuthLogout(d)
	case "status":
		return doAuthStatus(d)
	case "whoami":
		return doAuthWhoAmI(d)
	}
	return usage(d, "rolodex auth <login|logout|status|whoami>")
}

func doAuthLogin(d Deps) int {
	fmt.Fprint(d.Stdout, "Paste your token: ")
	line, err := bufio.NewReader(d.Stdin).ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		ui.Fail(d.Stderr, "read token: "+err.Error())
		return 1
	}
	if err := d.Auth.Set(line, nil); err != nil {
		ui.Fail(d.Stderr, "save token: "+err.Error())
		return 1
	}
	ui.OK(d.Stdout, "logged in")
	return 0
}

func doAuthLogout(d Deps) int {
	ti, _ := d.Auth.Get()
	if ti != nil && ti.Source == "env" {
		ui.OK(d.Stdout, "token is provided by "+auth.EnvToken+" env var (nothing to delete)")
		return 0
	}
	if err := d.Auth.Delete(); err != nil {
		ui.Fail(d.Stderr, "logout: "+err.Error())
		return 1
	}
	ui.OK(d.Stdout, "logged out")
	return 0
}

func doAuthStatus(d Deps) int {
	ti, err := d.Auth.Get()
	if err != nil {
		ui.Fail(d.Stderr, "status: "+err.Error())
		return 1
	}
	if ti == nil {
		fmt.Fprintln(d.Stdout, ui.Dim("not logged in"))
		fmt.Fprintln(d.Stdout, "Run: rolodex auth login")
		return 0
	}
	fmt.Fprintf(d.Stdout, "source: %s\n", ti.Source)
	switch {
	case ti.ExpiresAt == nil:
		fmt.Fprintln(d.Stdout, "expires: (unknown)")
	case ti.Expired(time.Now()):
		fmt.Fprintf(d.Stdout, "expires: %s %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339), ui.C(ui.Current().Error, "(expired)"))
	default:
		fmt.Fprintf(d.Stdout, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(d.Stdout, "env override: "+auth.EnvToken)
	return 0
}

// whoami decodes a JWT locally (unverified); opaque tokens print basic info.
func doAuthWhoAmI(d Deps) int {
	ti, err := d.Auth.Require()
	if err != nil {
		ui.Fail(d.Stderr, "not logged in. Run: rolodex auth login")
		return 2
	}
	claims, ok := auth.Claims(ti.Token)
	if !ok {
		fmt.Fprintln(d.Stdout, "Opaque token (cannot introspect locally).")
		fmt.Fprintln(d.Stdout, "source:", ti.Source)
		return 0
	}
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	lines := []string{ui.C(ui.Current().Title, "JWT claims"), ""}
	for _, k := range keys {
		v, _ := json.Marshal(claims[k])
		lines = append(lines, fmt.Sprintf("%s %s", ui.C(ui.Current().Muted, fmt.Sprintf("%-8s", k)), v))
	}
	ui.Panel(d.Stdout, lines)
	return 0
}
