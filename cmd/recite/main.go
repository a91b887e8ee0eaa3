// Command recite records spoken answers to practice exercises and submits
// them for evaluation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dil-foundation/lms-web-app-sub004/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}
