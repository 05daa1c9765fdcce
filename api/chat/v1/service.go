// Package v1 is the wire contract of chat.v1.MessengerService: plain Go
// messages carried by a JSON codec, the service descriptor and a client.
package v1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chat.v1.MessengerService"

// Full method names, as seen by interceptors.
const (
	MethodRegister             = "/" + ServiceName + "/Register"
	MethodLogin                = "/" + ServiceName + "/Login"
	MethodUserExists           = "/" + ServiceName + "/UserExists"
	MethodSearchUsers          = "/" + ServiceName + "/SearchUsers"
	MethodCreateConversation   = "/" + ServiceName + "/CreateConversation"
	MethodSendMessage          = "/" + ServiceName + "/SendMessage"
	MethodUploadProfilePicture = "/" + ServiceName + "/UploadProfilePicture"
	MethodGetProfilePictureURL = "/" + ServiceName + "/GetProfilePictureURL"
	MethodWatchConversations   = "/" + ServiceName + "/WatchConversations"
	MethodWatchMessages        = "/" + ServiceName + "/WatchMessages"
)

// MessengerServer is implemented by the API server.
type MessengerServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	UserExists(context.Context, *UserExistsRequest) (*UserExistsResponse, error)
	SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error)
	CreateConversation(context.Context, *CreateConversationRequest) (*CreateConversationResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	UploadProfilePicture(context.Context, *UploadProfilePictureRequest) (*UploadProfilePictureResponse, error)
	GetProfilePictureURL(context.Context, *GetProfilePictureURLRequest) (*GetProfilePictureURLResponse, error)
	WatchConversations(*WatchConversationsRequest, grpc.ServerStreamingServer[ConversationsUpdate]) error
	WatchMessages(*WatchMessagesRequest, grpc.ServerStreamingServer[MessagesUpdate]) error
}

// RegisterMessengerServer registers srv on s.
func RegisterMessengerServer(s grpc.ServiceRegistrar, srv MessengerServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unary[Req, Resp any](name string, call func(MessengerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MessengerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MessengerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func serverStream[Req, Resp any](name string, call func(MessengerServer, *Req, grpc.ServerStreamingServer[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(Req)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return call(srv.(MessengerServer), in, &grpc.GenericServerStream[Req, Resp]{ServerStream: stream})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessengerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", MessengerServer.Register),
		unary("Login", MessengerServer.Login),
		unary("UserExists", MessengerServer.UserExists),
		unary("SearchUsers", MessengerServer.SearchUsers),
		unary("CreateConversation", MessengerServer.CreateConversation),
		unary("SendMessage", MessengerServer.SendMessage),
		unary("UploadProfilePicture", MessengerServer.UploadProfilePicture),
		unary("GetProfilePictureURL", MessengerServer.GetProfilePictureURL),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchConversations", MessengerServer.WatchConversations),
		serverStream("WatchMessages", MessengerServer.WatchMessages),
	},
	Metadata: "chat/v1/messenger.json",
}
