// Package client contains the client-side building blocks for talking to a
// SealKeeper ledger node.
//
// # Overview
//
//  1. GRPCClient is the record store, network-info source and decryption
//     relayer over the ledger gRPC service. It injects the session token and
//     a request id into every call, opens a new session when the token
//     expired, and maps gRPC status codes to sentinel errors.
//  2. Submitted transactions are returned as models.PendingTx; Wait polls the
//     receipt with exponential backoff until it is committed or reverted.
//  3. InitDatabase and RunMigrations bootstrap the local SQLite database with
//     embedded goose migrations; Repositories bundles the repositories on it.
//
// # Error Handling
//
// Transport conditions are exposed as ErrUnavailable and ErrUnauthorized. A
// reverted transaction yields common.ErrTransactionFailed, or
// common.ErrConcurrentlyVerified when the record had already been verified.
package client
