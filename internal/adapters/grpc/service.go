package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "kbdlight.v1.Control"

// The control service only carries protobuf well-known types, so its
// descriptor is declared here instead of generated from a .proto file
//
//	service Control {
//	  rpc Toggle(google.protobuf.Empty) returns (google.protobuf.BoolValue);
//	  rpc SetEnabled(google.protobuf.BoolValue) returns (google.protobuf.BoolValue);
//	  rpc Status(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc History(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}

// ControlServer is the server API for the control service
type ControlServer interface {
	Toggle(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	SetEnabled(context.Context, *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ControlServiceDesc describes the control service for grpc.Server
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Toggle", ControlServer.Toggle),
		unary("SetEnabled", ControlServer.SetEnabled),
		unary("Status", ControlServer.Status),
		unary("History", ControlServer.History),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kbdlight/v1/control.proto",
}

// RegisterControlServer registers srv on s
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method handler the generated code would contain
func unary[Req, Resp any](name string, call func(ControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ControlServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
