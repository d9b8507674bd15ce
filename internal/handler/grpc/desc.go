package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// serviceDesc is written by hand in the shape protoc-gen-go-grpc would
// otherwise generate from a .proto file (see the package doc for why there
// is no .proto here). It registers the same two RPCs under the same
// fully-qualified service name a real proto definition would use, so a
// future switch to generated code only replaces this file.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "webitel.broadcast.v1.ConnectionControl",
	HandlerType: (*connectionControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetConnectionStats",
			Handler:    getConnectionStatsHandler,
		},
		{
			MethodName: "ForceDisconnect",
			Handler:    forceDisconnectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "broadcast/v1/connection_control.proto",
}

type connectionControlServer interface {
	GetConnectionStats(context.Context, *GetConnectionStatsRequest) (*GetConnectionStatsResponse, error)
	ForceDisconnect(context.Context, *ForceDisconnectRequest) (*ForceDisconnectResponse, error)
}

var _ connectionControlServer = (*Service)(nil)

func getConnectionStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetConnectionStatsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(connectionControlServer).GetConnectionStats(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/webitel.broadcast.v1.ConnectionControl/GetConnectionStats",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(connectionControlServer).GetConnectionStats(ctx, req.(*GetConnectionStatsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func forceDisconnectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ForceDisconnectRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(connectionControlServer).ForceDisconnect(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/webitel.broadcast.v1.ConnectionControl/ForceDisconnect",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(connectionControlServer).ForceDisconnect(ctx, req.(*ForceDisconnectRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func RegisterConnectionControlServer(s grpc.ServiceRegistrar, srv connectionControlServer) {
	s.RegisterService(&serviceDesc, srv)
}
