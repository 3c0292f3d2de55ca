// Package rpc exposes window extraction over gRPC. Messages are protobuf
// Struct values so the service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	FeatureService_Health_FullMethodName         = "/windowspectra.v1.FeatureService/Health"
	FeatureService_ListSessions_FullMethodName   = "/windowspectra.v1.FeatureService/ListSessions"
	FeatureService_ExtractWindows_FullMethodName = "/windowspectra.v1.FeatureService/ExtractWindows"
	FeatureService_SessionWindows_FullMethodName = "/windowspectra.v1.FeatureService/SessionWindows"
)

// FeatureServiceServer is the server API for FeatureService.
type FeatureServiceServer interface {
	// Health reports {"status": "ok"} and the configured window size.
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListSessions takes {"status", "limit", "offset"} and returns {"sessions": [...]}.
	ListSessions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ExtractWindows takes {"pcap_path"} and streams one envelope per sealed window.
	ExtractWindows(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
	// SessionWindows takes {"session_id"} and streams the stored windows of that session.
	SessionWindows(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedFeatureServiceServer can be embedded to have forward compatible implementations.
type UnimplementedFeatureServiceServer struct{}

func (UnimplementedFeatureServiceServer) Health(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Health not implemented")
}
func (UnimplementedFeatureServiceServer) ListSessions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListSessions not implemented")
}
func (UnimplementedFeatureServiceServer) ExtractWindows(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Errorf(codes.Unimplemented, "method ExtractWindows not implemented")
}
func (UnimplementedFeatureServiceServer) SessionWindows(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Errorf(codes.Unimplemented, "method SessionWindows not implemented")
}

// RegisterFeatureServiceServer registers srv on s.
func RegisterFeatureServiceServer(s grpc.ServiceRegistrar, srv FeatureServiceServer) {
	s.RegisterService(&FeatureService_ServiceDesc, srv)
}

func _FeatureService_Health_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeatureServiceServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FeatureService_Health_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeatureServiceServer).Health(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _FeatureService_ListSessions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeatureServiceServer).ListSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FeatureService_ListSessions_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeatureServiceServer).ListSessions(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _FeatureService_ExtractWindows_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FeatureServiceServer).ExtractWindows(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

func _FeatureService_SessionWindows_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FeatureServiceServer).SessionWindows(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// FeatureService_ServiceDesc is the grpc.ServiceDesc for FeatureService.
var FeatureService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "windowspectra.v1.FeatureService",
	HandlerType: (*FeatureServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Health",
			Handler:    _FeatureService_Health_Handler,
		},
		{
			MethodName: "ListSessions",
			Handler:    _FeatureService_ListSessions_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ExtractWindows",
			Handler:       _FeatureService_ExtractWindows_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "SessionWindows",
			Handler:       _FeatureService_SessionWindows_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "windowspectra/v1/feature_service.proto",
}

// FeatureServiceClient is the client API for FeatureService.
type FeatureServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewFeatureServiceClient wraps a client connection.
func NewFeatureServiceClient(cc grpc.ClientConnInterface) *FeatureServiceClient {
	return &FeatureServiceClient{cc: cc}
}

func (c *FeatureServiceClient) Health(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeatureService_Health_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FeatureServiceClient) ListSessions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeatureService_ListSessions_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FeatureServiceClient) ExtractWindows(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	return c.serverStream(ctx, 0, FeatureService_ExtractWindows_FullMethodName, in, opts...)
}

func (c *FeatureServiceClient) SessionWindows(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	return c.serverStream(ctx, 1, FeatureService_SessionWindows_FullMethodName, in, opts...)
}

func (c *FeatureServiceClient) serverStream(ctx context.Context, idx int, method string, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &FeatureService_ServiceDesc.Streams[idx], method, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
