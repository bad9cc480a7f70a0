// Package records stores the last refreshed record list in SQLite so the
// CLI can show it while the ledger node is unreachable.
//
// The snapshot is always replaced as a whole, in list order. Run ReplaceAll
// inside dbx.WithTx so readers never see a half-written list.
package records
