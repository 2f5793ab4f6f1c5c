package main

import "context"

// cmdContext returns the background context CLI subcommands run under;
// there is no request-scoped cancellation to thread through a one-shot
// invocation.
func cmdContext() context.Context {
	return context.Background()
}
