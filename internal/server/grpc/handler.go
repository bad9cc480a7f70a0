package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sealkeeper/internal/server/chain"
	"github.com/dmitrijs2005/sealkeeper/internal/server/kms"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Ping(ctx context.Context, req *ledger.PingRequest) (*ledger.PingResponse, error) {
	return &ledger.PingResponse{Status: "OK", Height: s.chain.Height()}, nil
}

func (s *GRPCServer) GetNetworkInfo(ctx context.Context, req *ledger.GetNetworkInfoRequest) (*ledger.NetworkInfo, error) {
	return &ledger.NetworkInfo{
		ChainID:             s.chainID,
		ContractAddress:     s.chain.Contract(),
		EncryptionPublicKey: s.keys.EncryptionPublic,
		KMSVerifyingKey:     s.keys.VerifyingKey(),
	}, nil
}

func (s *GRPCServer) Connect(ctx context.Context, req *ledger.ConnectRequest) (*ledger.ConnectResponse, error) {
	address, err := auth.VerifyConnect(req.PublicKey, req.Timestamp, req.Signature, s.now())
	if err != nil {
		s.logger.Info(ctx, "connect refused", "error", err)
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	token, exp, err := auth.GenerateToken(address, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.logger.Error(ctx, "token generation failed", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}

	s.logger.Info(ctx, "Connected", "address", address)
	return &ledger.ConnectResponse{Address: address, AccessToken: token, ExpiresAt: exp.Unix()}, nil
}

func (s *GRPCServer) checkContract(contract string) error {
	if !ledger.SameAddress(contract, s.chain.Contract()) {
		return status.Error(codes.NotFound, "unknown contract")
	}
	return nil
}

func (s *GRPCServer) ListRecordIDs(ctx context.Context, req *ledger.ListRecordIDsRequest) (*ledger.ListRecordIDsResponse, error) {
	if err := s.checkContract(req.ContractAddress); err != nil {
		return nil, err
	}

	ids, err := s.records.ListIDs(ctx, req.ContractAddress)
	if err != nil {
		s.logger.Error(ctx, "list records", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return &ledger.ListRecordIDsResponse{IDs: ids}, nil
}

func (s *GRPCServer) GetRecord(ctx context.Context, req *ledger.GetRecordRequest) (*ledger.GetRecordResponse, error) {
	if err := s.checkContract(req.ContractAddress); err != nil {
		return nil, err
	}

	rec, err := s.records.Get(ctx, req.ContractAddress, req.ID)
	if err != nil {
		return nil, s.recordError(ctx, err)
	}
	return &ledger.GetRecordResponse{Record: rec.View()}, nil
}

func (s *GRPCServer) GetEncryptedHandle(ctx context.Context, req *ledger.GetEncryptedHandleRequest) (*ledger.GetEncryptedHandleResponse, error) {
	if err := s.checkContract(req.ContractAddress); err != nil {
		return nil, err
	}

	rec, err := s.records.Get(ctx, req.ContractAddress, req.ID)
	if err != nil {
		return nil, s.recordError(ctx, err)
	}
	return &ledger.GetEncryptedHandleResponse{Handle: rec.Handle}, nil
}

func (s *GRPCServer) recordError(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return status.Error(codes.NotFound, "record not found")
	}
	s.logger.Error(ctx, "load record", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

func (s *GRPCServer) SendTransaction(ctx context.Context, req *ledger.SendTransactionRequest) (*ledger.SendTransactionResponse, error) {
	address, ok := AddressFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if !ledger.SameAddress(address, req.Tx.Tx.Sender) {
		return nil, status.Error(codes.PermissionDenied, "sender does not match session")
	}

	hash, err := s.chain.Submit(ctx, req.Tx)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrBadSignature), errors.Is(err, ledger.ErrWrongSender),
			errors.Is(err, ledger.ErrUnknownKind), errors.Is(err, chain.ErrWrongContract):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, chain.ErrDuplicateTx):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		case errors.Is(err, chain.ErrMempoolFull):
			return nil, status.Error(codes.ResourceExhausted, err.Error())
		default:
			s.logger.Error(ctx, "submit transaction", "error", err)
			return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
		}
	}

	s.logger.Info(ctx, "Transaction submitted", "hash", hash, "kind", req.Tx.Tx.Kind)
	return &ledger.SendTransactionResponse{Hash: hash}, nil
}

func (s *GRPCServer) GetReceipt(ctx context.Context, req *ledger.GetReceiptRequest) (*ledger.GetReceiptResponse, error) {
	rc, err := s.chain.Receipt(ctx, req.Hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, status.Error(codes.NotFound, "receipt not found")
		}
		s.logger.Error(ctx, "load receipt", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return &ledger.GetReceiptResponse{Receipt: *rc}, nil
}

func (s *GRPCServer) RequestDecryption(ctx context.Context, req *ledger.RequestDecryptionRequest) (*ledger.RequestDecryptionResponse, error) {
	address, ok := AddressFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if !ledger.SameAddress(address, req.Requester) {
		return nil, status.Error(codes.PermissionDenied, "requester does not match session")
	}
	if err := s.checkContract(req.ContractAddress); err != nil {
		return nil, err
	}

	encoded, proof, err := s.kms.Decrypt(ctx, req.ContractAddress, req.Handles)
	s.observer.Decryption(err == nil)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, status.Error(codes.NotFound, "handle not found")
		case errors.Is(err, kms.ErrNoHandles), errors.Is(err, kms.ErrTooManyHandles), errors.Is(err, kms.ErrWrongContract):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		default:
			s.logger.Error(ctx, "decryption failed", "error", err)
			return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
		}
	}

	s.logger.Info(ctx, "Decryption served", "requester", address, "handles", len(req.Handles))
	return &ledger.RequestDecryptionResponse{ClearValues: encoded, Proof: proof}, nil
}
