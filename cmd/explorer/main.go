// Explorer CLI
//
// Browses and edits the folder tree of an explorer gateway:
// - ls, tree and search views (tree, flat and search modes)
// - rename, rm, mv, cp, mkdir, touch, comment and icon
// - login/logout with a sealed session file
// - structured logging (zap) and optional Prometheus metrics
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
