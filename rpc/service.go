package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service names. Both services use protobuf well-known types only, so no
// protoc step is needed.
const (
	DerivationService  = "xdao.keyforge.rpc.v1.Derivation"
	VectorStoreService = "xdao.keyforge.rpc.v1.VectorStore"
)

const (
	methodDerive  = "/" + DerivationService + "/Derive"
	methodCatalog = "/" + DerivationService + "/Catalog"
	methodPut     = "/" + VectorStoreService + "/Put"
	methodGet     = "/" + VectorStoreService + "/Get"
	methodHas     = "/" + VectorStoreService + "/Has"
)

// DerivationServer is the server API for the Derivation service.
type DerivationServer interface {
	Derive(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Catalog(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// VectorStoreServer is the server API for the VectorStore service.
type VectorStoreServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// UnimplementedVectorStoreServer can be embedded to have forward compatible implementations.
type UnimplementedVectorStoreServer struct{}

func (UnimplementedVectorStoreServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedVectorStoreServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedVectorStoreServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}

// methodHandler matches grpc.MethodDesc.Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// unary builds a methodHandler that decodes a Req and hands it to call,
// running the interceptor chain when one is installed.
func unary[Req proto.Message](fullMethod string, newReq func() Req, call func(srv any, ctx context.Context, in Req) (any, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Derivation_ServiceDesc is the grpc.ServiceDesc for the Derivation service.
var Derivation_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DerivationService,
	HandlerType: (*DerivationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Derive",
			Handler: unary(methodDerive, func() *structpb.Struct { return new(structpb.Struct) },
				func(srv any, ctx context.Context, in *structpb.Struct) (any, error) {
					return srv.(DerivationServer).Derive(ctx, in)
				}),
		},
		{
			MethodName: "Catalog",
			Handler: unary(methodCatalog, func() *emptypb.Empty { return new(emptypb.Empty) },
				func(srv any, ctx context.Context, in *emptypb.Empty) (any, error) {
					return srv.(DerivationServer).Catalog(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "keyforge.proto",
}

// VectorStore_ServiceDesc is the grpc.ServiceDesc for the VectorStore service.
var VectorStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: VectorStoreService,
	HandlerType: (*VectorStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Put",
			Handler: unary(methodPut, func() *wrapperspb.BytesValue { return new(wrapperspb.BytesValue) },
				func(srv any, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
					return srv.(VectorStoreServer).Put(ctx, in)
				}),
		},
		{
			MethodName: "Get",
			Handler: unary(methodGet, func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				func(srv any, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
					return srv.(VectorStoreServer).Get(ctx, in)
				}),
		},
		{
			MethodName: "Has",
			Handler: unary(methodHas, func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				func(srv any, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
					return srv.(VectorStoreServer).Has(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "keyforge.proto",
}

// RegisterDerivationServer registers the Derivation service on a gRPC server.
func RegisterDerivationServer(s grpc.ServiceRegistrar, srv DerivationServer) {
	s.RegisterService(&Derivation_ServiceDesc, srv)
}

// RegisterVectorStoreServer registers the VectorStore service on a gRPC server.
func RegisterVectorStoreServer(s grpc.ServiceRegistrar, srv VectorStoreServer) {
	s.RegisterService(&VectorStore_ServiceDesc, srv)
}

type derivationClient struct{ cc grpc.ClientConnInterface }

func (c derivationClient) Derive(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodDerive, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c derivationClient) Catalog(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodCatalog, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type vectorStoreClient struct{ cc grpc.ClientConnInterface }

func (c vectorStoreClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodPut, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c vectorStoreClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodGet, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c vectorStoreClient) Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, methodHas, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
