// Hand-registered gRPC service over protobuf well-known types
package server

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SpeciesServiceName is the fully qualified gRPC service name.
const SpeciesServiceName = "redlist.v1.SpeciesService"

// Full method names.
const (
	SpeciesServiceListSpeciesMethod = "/redlist.v1.SpeciesService/ListSpecies"
	SpeciesServiceGetSpeciesMethod  = "/redlist.v1.SpeciesService/GetSpecies"
	SpeciesServiceCorpusStatsMethod = "/redlist.v1.SpeciesService/CorpusStats"
)

// SpeciesServiceServer is the server API for the species service.
type SpeciesServiceServer interface {
	// ListSpecies accepts the list query fields (q, page, pageSize, status,
	// hasImage, source, sort) and returns the list response object.
	ListSpecies(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetSpecies returns the detail object for a slug.
	GetSpecies(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// CorpusStats describes the loaded corpus.
	CorpusStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterSpeciesServiceServer registers srv with s.
func RegisterSpeciesServiceServer(s grpc.ServiceRegistrar, srv SpeciesServiceServer) {
	s.RegisterService(&SpeciesServiceDesc, srv)
}

// SpeciesServiceDesc describes the species service for grpc.Server.
var SpeciesServiceDesc = grpc.ServiceDesc{
	ServiceName: SpeciesServiceName,
	HandlerType: (*SpeciesServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListSpecies",
			Handler:    listSpeciesHandler,
		},
		{
			MethodName: "GetSpecies",
			Handler:    getSpeciesHandler,
		},
		{
			MethodName: "CorpusStats",
			Handler:    corpusStatsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "redlist/v1/species.proto",
}

func listSpeciesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SpeciesServiceServer).ListSpecies(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SpeciesServiceListSpeciesMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SpeciesServiceServer).ListSpecies(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getSpeciesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SpeciesServiceServer).GetSpecies(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SpeciesServiceGetSpeciesMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SpeciesServiceServer).GetSpecies(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func corpusStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SpeciesServiceServer).CorpusStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SpeciesServiceCorpusStatsMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SpeciesServiceServer).CorpusStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SpeciesServiceClient is the client API for the species service.
type SpeciesServiceClient interface {
	ListSpecies(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSpecies(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	CorpusStats(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type speciesServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSpeciesServiceClient creates a client on cc.
func NewSpeciesServiceClient(cc grpc.ClientConnInterface) SpeciesServiceClient {
	return &speciesServiceClient{cc: cc}
}

func (c *speciesServiceClient) ListSpecies(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SpeciesServiceListSpeciesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *speciesServiceClient) GetSpecies(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SpeciesServiceGetSpeciesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *speciesServiceClient) CorpusStats(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SpeciesServiceCorpusStatsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NewGRPCServer builds a grpc.Server carrying the species service, the
// standard health service and reflection.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(GrpcMetricsInterceptor(s.metrics, s.log)),
	}, opts...)
	gs := grpc.NewServer(opts...)

	RegisterSpeciesServiceServer(gs, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(SpeciesServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	// Reflection for grpcurl/grpcui
	reflection.Register(gs)

	return gs, hs
}
