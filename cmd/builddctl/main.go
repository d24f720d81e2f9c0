// Command builddctl drives a buildd controller from the shell: jobs, views,
// plugins, credentials, and the lockable resource pool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(submain(ctx))
}
