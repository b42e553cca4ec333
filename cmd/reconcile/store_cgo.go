//go:build cgo

package main

import "github.com/dusk-indust/reconcile/internal/evolution"

// openStore opens the durable KuzuDB-backed evolution store at dbPath.
func openStore(dbPath string) (evolution.Store, error) {
	return evolution.NewKuzuFileStore(dbPath)
}
