package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/auth"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/cli"
)

func (r Runner) commandLogin(parsed cli.Parsed) int {
	store, err := auth.NewStore("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	token := strings.TrimSpace(parsed.Token)
	if token == "" {
		line, err := newPrompter(r.stdin(), r.Stderr).line("Token: ")
		if err != nil {
			fmt.Fprintln(r.Stderr, "error: a token is required")
			return 1
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		fmt.Fprintln(r.Stderr, "error: a token is required")
		return 1
	}

	if err := store.Login(token); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if expiry, ok := auth.TokenExpiry(token); ok {
		if time.Now().After(expiry) {
			fmt.Fprintf(r.Stderr, "warning: token expired %s\n", expiry.Format(time.RFC3339))
		} else {
			fmt.Fprintf(r.Stdout, "token valid until %s\n", expiry.Format(time.RFC3339))
		}
	}

	fmt.Fprintf(r.Stdout, "logged in (credentials at %s)\n", store.Path())
	return 0
}

func (r Runner) commandLogout() int {
	store, err := auth.NewStore("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	removed, err := store.Logout()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if !removed {
		fmt.Fprintln(r.Stdout, "no stored credentials")
		return 0
	}
	fmt.Fprintln(r.Stdout, "logged out")
	return 0
}
