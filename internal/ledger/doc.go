// Package ledger defines the wire contract between the SealKeeper client and
// the ledger node: the gRPC service description, its request and response
// messages, and the transaction format.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// "json" content subtype, so no generated stubs are needed. Clients select it
// with grpc.CallContentSubtype(CodecName); servers pick it up from the
// request's content type.
//
// Transactions have a canonical protobuf-wire encoding (see Tx.Encode). The
// transaction hash and the sender signature both cover that encoding, and a
// sender address is derived from its ed25519 public key.
package ledger
