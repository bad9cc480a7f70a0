// Package common contains shared constants and sentinel errors used across
// SealKeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the session
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName carries a per-call correlation id so client and node
// log lines can be matched.
const RequestIDHeaderName = "x-request-id"

// AlreadyVerifiedReason is the revert reason the ledger reports when a
// verification lands on a record that is already verified.
const AlreadyVerifiedReason = "data already verified"
