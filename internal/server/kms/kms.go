// Package kms is the node's decryption oracle. It opens sealed inputs that
// were accepted on chain and signs the resulting clear values so that the
// ledger can later check them.
package kms

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"github.com/dmitrijs2005/sealkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/records"
)

// MaxHandles bounds a single decryption request.
const MaxHandles = 16

var (
	ErrNoHandles      = errors.New("no handles requested")
	ErrTooManyHandles = fmt.Errorf("more than %d handles requested", MaxHandles)
	ErrWrongContract  = errors.New("handle does not belong to contract")
)

// SealBlob is the blob layout stored for a record: the fixed-size payload
// followed by its input proof.
func SealBlob(payload, proof []byte) []byte {
	out := make([]byte, 0, len(payload)+len(proof))
	out = append(out, payload...)
	return append(out, proof...)
}

func splitBlob(b []byte) (payload, proof []byte, err error) {
	if len(b) <= sealing.PayloadSize {
		return nil, nil, common.ErrInvalidPayload
	}
	return b[:sealing.PayloadSize], b[sealing.PayloadSize:], nil
}

type Service struct {
	keys    *sealing.NetworkKeys
	records records.Repository
	blobs   blobstore.Store
	logger  logging.Logger
}

func New(keys *sealing.NetworkKeys, recs records.Repository, blobs blobstore.Store, logger logging.Logger) *Service {
	return &Service{keys: keys, records: recs, blobs: blobs, logger: logger.With("module", "kms")}
}

// Decrypt returns the ABI-encoded clear values of handles, in request order,
// and the KMS signature over them.
func (s *Service) Decrypt(ctx context.Context, contract string, handles []string) (encoded, proof []byte, err error) {
	if len(handles) == 0 {
		return nil, nil, ErrNoHandles
	}
	if len(handles) > MaxHandles {
		return nil, nil, ErrTooManyHandles
	}

	values := make([]int64, 0, len(handles))
	for _, h := range handles {
		v, err := s.open(ctx, contract, h)
		if err != nil {
			s.logger.Warn(ctx, "decryption refused", "handle", h, "error", err)
			return nil, nil, err
		}
		values = append(values, v)
	}

	encoded = sealing.EncodeClearValues(values)
	proof = sealing.SignDecryption(s.keys.Signing, contract, handles, encoded)
	s.logger.Debug(ctx, "decrypted", "contract", contract, "handles", len(handles))
	return encoded, proof, nil
}

func (s *Service) open(ctx context.Context, contract, handle string) (int64, error) {
	rec, err := s.records.GetByHandle(ctx, handle)
	if err != nil {
		return 0, err
	}
	if !ledger.SameAddress(rec.ContractAddress, contract) {
		return 0, ErrWrongContract
	}

	blob, err := s.blobs.Get(ctx, handle)
	if err != nil {
		return 0, fmt.Errorf("load sealed input: %w", err)
	}
	payload, inputProof, err := splitBlob(blob)
	if err != nil {
		return 0, err
	}

	return sealing.OpenInput(s.keys, payload, inputProof, rec.ContractAddress, rec.Creator)
}
