// Package cli provides the interactive SealKeeper command-line client.
//
// It wires configuration, the local wallet and snapshot database, the ledger
// client and the record lifecycle controller behind a small REPL. A
// background watcher pings the node and switches between online and offline
// mode; while offline, list falls back to the cached snapshot.
//
// Commands:
//   - connect / disconnect
//   - list [query], next, prev
//   - create, show <id>, decrypt <id>, hide <id>
//   - refresh, check, status
//   - exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
