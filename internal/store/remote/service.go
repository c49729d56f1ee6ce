package remote

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "litetable.access.v1.Store"

const (
	Store_Get_FullMethodName            = "/" + ServiceName + "/Get"
	Store_Put_FullMethodName            = "/" + ServiceName + "/Put"
	Store_Delete_FullMethodName         = "/" + ServiceName + "/Delete"
	Store_CheckAndPut_FullMethodName    = "/" + ServiceName + "/CheckAndPut"
	Store_Scan_FullMethodName           = "/" + ServiceName + "/Scan"
	Store_BatchDelete_FullMethodName    = "/" + ServiceName + "/BatchDelete"
	Store_AggregateCount_FullMethodName = "/" + ServiceName + "/AggregateCount"
)

// StoreServer is the server API of the store service.
type StoreServer interface {
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Put(context.Context, *PutRequest) (*PutResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	CheckAndPut(context.Context, *CheckAndPutRequest) (*CheckAndPutResponse, error)
	Scan(*ScanRequest, Store_ScanServer) error
	BatchDelete(context.Context, *BatchDeleteRequest) (*BatchDeleteResponse, error)
	AggregateCount(context.Context, *CountRequest) (*CountResponse, error)
}

// Store_ScanServer is the server side of a scan stream.
type Store_ScanServer interface {
	Send(*ScanResponse) error
	grpc.ServerStream
}

type storeScanServer struct {
	grpc.ServerStream
}

func (x *storeScanServer) Send(m *ScanResponse) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterStoreServer registers srv on s.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&Store_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string,
	call func(StoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error,
		interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _Store_Scan_Handler(srv any, stream grpc.ServerStream) error {
	m := new(ScanRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(StoreServer).Scan(m, &storeScanServer{stream})
}

// Store_ServiceDesc is the grpc.ServiceDesc of the store service.
var Store_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Get",
			Handler:    unaryHandler(Store_Get_FullMethodName, StoreServer.Get),
		},
		{
			MethodName: "Put",
			Handler:    unaryHandler(Store_Put_FullMethodName, StoreServer.Put),
		},
		{
			MethodName: "Delete",
			Handler:    unaryHandler(Store_Delete_FullMethodName, StoreServer.Delete),
		},
		{
			MethodName: "CheckAndPut",
			Handler:    unaryHandler(Store_CheckAndPut_FullMethodName, StoreServer.CheckAndPut),
		},
		{
			MethodName: "BatchDelete",
			Handler:    unaryHandler(Store_BatchDelete_FullMethodName, StoreServer.BatchDelete),
		},
		{
			MethodName: "AggregateCount",
			Handler: unaryHandler(Store_AggregateCount_FullMethodName,
				StoreServer.AggregateCount),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Scan",
			Handler:       _Store_Scan_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "litetable/access/v1/store",
}

// StoreClient is the client API of the store service.
type StoreClient interface {
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error)
	Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutResponse, error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse,
		error)
	CheckAndPut(ctx context.Context, in *CheckAndPutRequest,
		opts ...grpc.CallOption) (*CheckAndPutResponse, error)
	Scan(ctx context.Context, in *ScanRequest, opts ...grpc.CallOption) (Store_ScanClient, error)
	BatchDelete(ctx context.Context, in *BatchDeleteRequest,
		opts ...grpc.CallOption) (*BatchDeleteResponse, error)
	AggregateCount(ctx context.Context, in *CountRequest,
		opts ...grpc.CallOption) (*CountResponse, error)
}

// Store_ScanClient is the client side of a scan stream.
type Store_ScanClient interface {
	Recv() (*ScanResponse, error)
	grpc.ClientStream
}

type storeClient struct {
	cc grpc.ClientConnInterface
}

func NewStoreClient(cc grpc.ClientConnInterface) StoreClient {
	return &storeClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any,
	opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) Get(ctx context.Context, in *GetRequest,
	opts ...grpc.CallOption) (*GetResponse, error) {
	return invoke[GetResponse](ctx, c.cc, Store_Get_FullMethodName, in, opts...)
}

func (c *storeClient) Put(ctx context.Context, in *PutRequest,
	opts ...grpc.CallOption) (*PutResponse, error) {
	return invoke[PutResponse](ctx, c.cc, Store_Put_FullMethodName, in, opts...)
}

func (c *storeClient) Delete(ctx context.Context, in *DeleteRequest,
	opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, Store_Delete_FullMethodName, in, opts...)
}

func (c *storeClient) CheckAndPut(ctx context.Context, in *CheckAndPutRequest,
	opts ...grpc.CallOption) (*CheckAndPutResponse, error) {
	return invoke[CheckAndPutResponse](ctx, c.cc, Store_CheckAndPut_FullMethodName, in, opts...)
}

func (c *storeClient) BatchDelete(ctx context.Context, in *BatchDeleteRequest,
	opts ...grpc.CallOption) (*BatchDeleteResponse, error) {
	return invoke[BatchDeleteResponse](ctx, c.cc, Store_BatchDelete_FullMethodName, in, opts...)
}

func (c *storeClient) AggregateCount(ctx context.Context, in *CountRequest,
	opts ...grpc.CallOption) (*CountResponse, error) {
	return invoke[CountResponse](ctx, c.cc, Store_AggregateCount_FullMethodName, in, opts...)
}

func (c *storeClient) Scan(ctx context.Context, in *ScanRequest,
	opts ...grpc.CallOption) (Store_ScanClient, error) {
	stream, err := c.cc.NewStream(ctx, &Store_ServiceDesc.Streams[0], Store_Scan_FullMethodName,
		opts...)
	if err != nil {
		return nil, err
	}
	x := &storeScanClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type storeScanClient struct {
	grpc.ClientStream
}

func (x *storeScanClient) Recv() (*ScanResponse, error) {
	m := new(ScanResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
