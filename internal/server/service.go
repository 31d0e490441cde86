package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fully-qualified service and method names of mlfq.v1.Simulator.
const (
	ServiceName          = "mlfq.v1.Simulator"
	SimulateMethod       = "/" + ServiceName + "/Simulate"
	ListSchemesMethod    = "/" + ServiceName + "/ListSchemes"
	simulatorProtoSource = "mlfq/v1/simulator.proto"
)

// SimulatorServer is the server API of mlfq.v1.Simulator.
//
// Simulate request fields:
//
//	workload  string    task lines in the "id;service;arrival;tier;priority" format
//	schemes   []string  optional, defaults to the server's configured schemes
//
// Simulate response fields: run_id, results, averages, report.
type SimulatorServer interface {
	Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSchemes(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterSimulatorServer registers srv with s.
func RegisterSimulatorServer(s grpc.ServiceRegistrar, srv SimulatorServer) {
	s.RegisterService(&simulatorServiceDesc, srv)
}

var simulatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: simulateHandler},
		{MethodName: "ListSchemes", Handler: listSchemesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: simulatorProtoSource,
}

func simulateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulatorServer).Simulate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SimulateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulatorServer).Simulate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listSchemesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulatorServer).ListSchemes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListSchemesMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulatorServer).ListSchemes(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
