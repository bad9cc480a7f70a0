package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const addressKey ctxKey = "address"

// protectedMethods require a valid access token.
var protectedMethods = map[string]bool{
	ledger.Ledger_SendTransaction_FullMethodName:   true,
	ledger.Ledger_RequestDecryption_FullMethodName: true,
}

// AddressFromContext returns the authenticated account, if any.
func AddressFromContext(ctx context.Context) (string, bool) {
	a, ok := ctx.Value(addressKey).(string)
	return a, ok && a != ""
}

func firstHeader(ctx context.Context, name string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(name); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// requestInterceptor tags every call with a request id and records its
// latency and status code.
func (s *GRPCServer) requestInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	requestID := firstHeader(ctx, common.RequestIDHeaderName)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	started := s.now()
	resp, err := handler(ctx, req)
	took := s.now().Sub(started)

	code := status.Code(err)
	s.observer.GRPCRequest(info.FullMethod, code.String(), took)
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "request_id", requestID, "code", code.String(), "took", took)

	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := firstHeader(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	address, err := auth.GetAddressFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	ctx = context.WithValue(ctx, addressKey, address)
	return handler(ctx, req)
}
