//go:build !cgo

package main

import "github.com/dusk-indust/reconcile/internal/evolution"

// openStore falls back to the in-memory evolution store when the binary is
// built without cgo. Tracking state then lives only for the process, which
// suits the MCP server mode.
func openStore(string) (evolution.Store, error) {
	return evolution.NewMemStore(), nil
}
