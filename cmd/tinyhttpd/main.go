//go:build linux

// tinyhttpd serves static files and CGI programs over HTTP/1.0.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tinyhttpd/cmd/tinyhttpd/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tinyhttpd: %v\n", err)
		os.Exit(1)
	}
}
