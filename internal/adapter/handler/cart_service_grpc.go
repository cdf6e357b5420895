package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The cart service speaks well-known protobuf types so clients need no
// generated stubs: requests carry the user id as Int64Value and replies are
// Structs shaped like the HTTP JSON bodies.

const (
	CartServiceName           = "showroom.v1.CartService"
	CartServiceCheckoutMethod = "/" + CartServiceName + "/Checkout"
	CartServiceGetCartMethod  = "/" + CartServiceName + "/GetCart"
)

type CartServiceServer interface {
	Checkout(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetCart(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&cartServiceDesc, srv)
}

func cartServiceCheckoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartServiceServer).Checkout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CartServiceCheckoutMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CartServiceServer).Checkout(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func cartServiceGetCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartServiceServer).GetCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CartServiceGetCartMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CartServiceServer).GetCart(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

var cartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Checkout", Handler: cartServiceCheckoutHandler},
		{MethodName: "GetCart", Handler: cartServiceGetCartHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "showroom/v1/cart.proto",
}

// CartServiceClient calls the cart service over an existing connection.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func (c *CartServiceClient) Checkout(ctx context.Context, userID int64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CartServiceCheckoutMethod, wrapperspb.Int64(userID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartServiceClient) GetCart(ctx context.Context, userID int64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CartServiceGetCartMethod, wrapperspb.Int64(userID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
