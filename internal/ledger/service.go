package ledger

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "sealkeeper.ledger.Ledger"

const (
	Ledger_Ping_FullMethodName               = "/" + ServiceName + "/Ping"
	Ledger_GetNetworkInfo_FullMethodName     = "/" + ServiceName + "/GetNetworkInfo"
	Ledger_Connect_FullMethodName            = "/" + ServiceName + "/Connect"
	Ledger_ListRecordIDs_FullMethodName      = "/" + ServiceName + "/ListRecordIDs"
	Ledger_GetRecord_FullMethodName          = "/" + ServiceName + "/GetRecord"
	Ledger_GetEncryptedHandle_FullMethodName = "/" + ServiceName + "/GetEncryptedHandle"
	Ledger_SendTransaction_FullMethodName    = "/" + ServiceName + "/SendTransaction"
	Ledger_GetReceipt_FullMethodName         = "/" + ServiceName + "/GetReceipt"
	Ledger_RequestDecryption_FullMethodName  = "/" + ServiceName + "/RequestDecryption"
)

// LedgerClient is the client API for the ledger service.
type LedgerClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	GetNetworkInfo(ctx context.Context, in *GetNetworkInfoRequest, opts ...grpc.CallOption) (*NetworkInfo, error)
	Connect(ctx context.Context, in *ConnectRequest, opts ...grpc.CallOption) (*ConnectResponse, error)
	ListRecordIDs(ctx context.Context, in *ListRecordIDsRequest, opts ...grpc.CallOption) (*ListRecordIDsResponse, error)
	GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error)
	GetEncryptedHandle(ctx context.Context, in *GetEncryptedHandleRequest, opts ...grpc.CallOption) (*GetEncryptedHandleResponse, error)
	SendTransaction(ctx context.Context, in *SendTransactionRequest, opts ...grpc.CallOption) (*SendTransactionResponse, error)
	GetReceipt(ctx context.Context, in *GetReceiptRequest, opts ...grpc.CallOption) (*GetReceiptResponse, error)
	RequestDecryption(ctx context.Context, in *RequestDecryptionRequest, opts ...grpc.CallOption) (*RequestDecryptionResponse, error)
}

type ledgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient {
	return &ledgerClient{cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingRequest, PingResponse](ctx, c.cc, Ledger_Ping_FullMethodName, in, opts)
}

func (c *ledgerClient) GetNetworkInfo(ctx context.Context, in *GetNetworkInfoRequest, opts ...grpc.CallOption) (*NetworkInfo, error) {
	return invoke[GetNetworkInfoRequest, NetworkInfo](ctx, c.cc, Ledger_GetNetworkInfo_FullMethodName, in, opts)
}

func (c *ledgerClient) Connect(ctx context.Context, in *ConnectRequest, opts ...grpc.CallOption) (*ConnectResponse, error) {
	return invoke[ConnectRequest, ConnectResponse](ctx, c.cc, Ledger_Connect_FullMethodName, in, opts)
}

func (c *ledgerClient) ListRecordIDs(ctx context.Context, in *ListRecordIDsRequest, opts ...grpc.CallOption) (*ListRecordIDsResponse, error) {
	return invoke[ListRecordIDsRequest, ListRecordIDsResponse](ctx, c.cc, Ledger_ListRecordIDs_FullMethodName, in, opts)
}

func (c *ledgerClient) GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error) {
	return invoke[GetRecordRequest, GetRecordResponse](ctx, c.cc, Ledger_GetRecord_FullMethodName, in, opts)
}

func (c *ledgerClient) GetEncryptedHandle(ctx context.Context, in *GetEncryptedHandleRequest, opts ...grpc.CallOption) (*GetEncryptedHandleResponse, error) {
	return invoke[GetEncryptedHandleRequest, GetEncryptedHandleResponse](ctx, c.cc, Ledger_GetEncryptedHandle_FullMethodName, in, opts)
}

func (c *ledgerClient) SendTransaction(ctx context.Context, in *SendTransactionRequest, opts ...grpc.CallOption) (*SendTransactionResponse, error) {
	return invoke[SendTransactionRequest, SendTransactionResponse](ctx, c.cc, Ledger_SendTransaction_FullMethodName, in, opts)
}

func (c *ledgerClient) GetReceipt(ctx context.Context, in *GetReceiptRequest, opts ...grpc.CallOption) (*GetReceiptResponse, error) {
	return invoke[GetReceiptRequest, GetReceiptResponse](ctx, c.cc, Ledger_GetReceipt_FullMethodName, in, opts)
}

func (c *ledgerClient) RequestDecryption(ctx context.Context, in *RequestDecryptionRequest, opts ...grpc.CallOption) (*RequestDecryptionResponse, error) {
	return invoke[RequestDecryptionRequest, RequestDecryptionResponse](ctx, c.cc, Ledger_RequestDecryption_FullMethodName, in, opts)
}

// LedgerServer is the server API for the ledger service. Implementations
// should embed UnimplementedLedgerServer.
type LedgerServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	GetNetworkInfo(context.Context, *GetNetworkInfoRequest) (*NetworkInfo, error)
	Connect(context.Context, *ConnectRequest) (*ConnectResponse, error)
	ListRecordIDs(context.Context, *ListRecordIDsRequest) (*ListRecordIDsResponse, error)
	GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error)
	GetEncryptedHandle(context.Context, *GetEncryptedHandleRequest) (*GetEncryptedHandleResponse, error)
	SendTransaction(context.Context, *SendTransactionRequest) (*SendTransactionResponse, error)
	GetReceipt(context.Context, *GetReceiptRequest) (*GetReceiptResponse, error)
	RequestDecryption(context.Context, *RequestDecryptionRequest) (*RequestDecryptionResponse, error)
}

type UnimplementedLedgerServer struct{}

func (UnimplementedLedgerServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedLedgerServer) GetNetworkInfo(context.Context, *GetNetworkInfoRequest) (*NetworkInfo, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNetworkInfo not implemented")
}
func (UnimplementedLedgerServer) Connect(context.Context, *ConnectRequest) (*ConnectResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Connect not implemented")
}
func (UnimplementedLedgerServer) ListRecordIDs(context.Context, *ListRecordIDsRequest) (*ListRecordIDsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecordIDs not implemented")
}
func (UnimplementedLedgerServer) GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRecord not implemented")
}
func (UnimplementedLedgerServer) GetEncryptedHandle(context.Context, *GetEncryptedHandleRequest) (*GetEncryptedHandleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetEncryptedHandle not implemented")
}
func (UnimplementedLedgerServer) SendTransaction(context.Context, *SendTransactionRequest) (*SendTransactionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendTransaction not implemented")
}
func (UnimplementedLedgerServer) GetReceipt(context.Context, *GetReceiptRequest) (*GetReceiptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetReceipt not implemented")
}
func (UnimplementedLedgerServer) RequestDecryption(context.Context, *RequestDecryptionRequest) (*RequestDecryptionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestDecryption not implemented")
}

func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&Ledger_ServiceDesc, srv)
}

func unaryHandler[Req any](fullMethod string, call func(LedgerServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Ledger_ServiceDesc is the grpc.ServiceDesc for the ledger service.
var Ledger_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler: unaryHandler(Ledger_Ping_FullMethodName, func(s LedgerServer, ctx context.Context, in *PingRequest) (any, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: "GetNetworkInfo",
			Handler: unaryHandler(Ledger_GetNetworkInfo_FullMethodName, func(s LedgerServer, ctx context.Context, in *GetNetworkInfoRequest) (any, error) {
				return s.GetNetworkInfo(ctx, in)
			}),
		},
		{
			MethodName: "Connect",
			Handler: unaryHandler(Ledger_Connect_FullMethodName, func(s LedgerServer, ctx context.Context, in *ConnectRequest) (any, error) {
				return s.Connect(ctx, in)
			}),
		},
		{
			MethodName: "ListRecordIDs",
			Handler: unaryHandler(Ledger_ListRecordIDs_FullMethodName, func(s LedgerServer, ctx context.Context, in *ListRecordIDsRequest) (any, error) {
				return s.ListRecordIDs(ctx, in)
			}),
		},
		{
			MethodName: "GetRecord",
			Handler: unaryHandler(Ledger_GetRecord_FullMethodName, func(s LedgerServer, ctx context.Context, in *GetRecordRequest) (any, error) {
				return s.GetRecord(ctx, in)
			}),
		},
		{
			MethodName: "GetEncryptedHandle",
			Handler: unaryHandler(Ledger_GetEncryptedHandle_FullMethodName, func(s LedgerServer, ctx context.Context, in *GetEncryptedHandleRequest) (any, error) {
				return s.GetEncryptedHandle(ctx, in)
			}),
		},
		{
			MethodName: "SendTransaction",
			Handler: unaryHandler(Ledger_SendTransaction_FullMethodName, func(s LedgerServer, ctx context.Context, in *SendTransactionRequest) (any, error) {
				return s.SendTransaction(ctx, in)
			}),
		},
		{
			MethodName: "GetReceipt",
			Handler: unaryHandler(Ledger_GetReceipt_FullMethodName, func(s LedgerServer, ctx context.Context, in *GetReceiptRequest) (any, error) {
				return s.GetReceipt(ctx, in)
			}),
		},
		{
			MethodName: "RequestDecryption",
			Handler: unaryHandler(Ledger_RequestDecryption_FullMethodName, func(s LedgerServer, ctx context.Context, in *RequestDecryptionRequest) (any, error) {
				return s.RequestDecryption(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sealkeeper/ledger",
}
