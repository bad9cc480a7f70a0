// Package services contains the application services of the SealKeeper
// client. The central one is RecordService, which owns the lifecycle of a
// confidential record: encrypted creation, proof-based decryption and
// on-chain verification, list refresh, and the transient transaction
// status shown to the user.
//
// Collaborators are consumed through the small interfaces in this package
// (EncryptionGateway, RecordStore, DecryptionCoordinator, Identity,
// SnapshotCache) so the flows can be exercised with in-memory fakes.
package services
