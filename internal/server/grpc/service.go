package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "featureboard.v1.FeatureBoard"

// FeatureBoardServer is the RPC surface. Every call takes and returns a
// google.protobuf.Struct; field names are documented on each handler.
type FeatureBoardServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)

	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyEmail(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResendVerification(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestPasswordReset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)

	CreateRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AuthorizeEdit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AuthorizeDelete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleVote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(FeatureBoardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(FeatureBoardServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var featureBoardServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FeatureBoardServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", FeatureBoardServer.Ping),
		unary("Register", FeatureBoardServer.Register),
		unary("VerifyEmail", FeatureBoardServer.VerifyEmail),
		unary("ResendVerification", FeatureBoardServer.ResendVerification),
		unary("RequestPasswordReset", FeatureBoardServer.RequestPasswordReset),
		unary("ResetPassword", FeatureBoardServer.ResetPassword),
		unary("Login", FeatureBoardServer.Login),
		unary("RefreshToken", FeatureBoardServer.RefreshToken),
		unary("CreateRequest", FeatureBoardServer.CreateRequest),
		unary("GetRequest", FeatureBoardServer.GetRequest),
		unary("AuthorizeEdit", FeatureBoardServer.AuthorizeEdit),
		unary("AuthorizeDelete", FeatureBoardServer.AuthorizeDelete),
		unary("EditRequest", FeatureBoardServer.EditRequest),
		unary("DeleteRequest", FeatureBoardServer.DeleteRequest),
		unary("UpdateStatus", FeatureBoardServer.UpdateStatus),
		unary("ToggleVote", FeatureBoardServer.ToggleVote),
		unary("DeleteAccount", FeatureBoardServer.DeleteAccount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "featureboard/v1/featureboard.proto",
}

// publicMethods can be called without an access token.
var publicMethods = map[string]bool{
	fullMethod("Ping"):                 true,
	fullMethod("Register"):             true,
	fullMethod("VerifyEmail"):          true,
	fullMethod("ResendVerification"):   true,
	fullMethod("RequestPasswordReset"): true,
	fullMethod("ResetPassword"):        true,
	fullMethod("Login"):                true,
	fullMethod("RefreshToken"):         true,
}
