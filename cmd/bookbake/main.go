// Command bookbake bakes a downloaded audiobook export: it reconciles the
// sidecar metadata with the part files, embeds tags and chapter tables, and
// writes chapter listing files for downstream tooling.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes: 0 success (possibly with warnings), 1 fatal error,
// 2 completed with per-part failures.
const (
	exitFatal        = 1
	exitPartFailures = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errPartFailures) {
			// The per-part table has already been printed.
			os.Exit(exitPartFailures)
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(exitFatal)
	}
}
