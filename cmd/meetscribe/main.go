// Package main provides the meetscribe CLI process entrypoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/app"
)

// main wires process signal handling to the application runner. The first
// interrupt cancels the context so a live recording seals and submits; once
// that fires, signal capture is released and a second interrupt terminates
// the process.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		stop()
	}()

	exitCode := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
