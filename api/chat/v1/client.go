package v1

import (
	"context"
	"io"

	"google.golang.org/grpc"
)

// MessengerClient calls chat.v1.MessengerService with the JSON codec.
type MessengerClient struct {
	cc grpc.ClientConnInterface
}

// NewMessengerClient returns a client over cc.
func NewMessengerClient(cc grpc.ClientConnInterface) *MessengerClient {
	return &MessengerClient{cc: cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func openStream[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Resp], error) {
	stream, err := cc.NewStream(ctx, desc, method, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Resp]{ClientStream: stream}
	// io.EOF means the server already ended the stream; Recv reports why
	if err := x.ClientStream.SendMsg(in); err != nil && err != io.EOF {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *MessengerClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *MessengerClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *MessengerClient) UserExists(ctx context.Context, in *UserExistsRequest, opts ...grpc.CallOption) (*UserExistsResponse, error) {
	return invoke[UserExistsResponse](ctx, c.cc, MethodUserExists, in, opts)
}

func (c *MessengerClient) SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error) {
	return invoke[SearchUsersResponse](ctx, c.cc, MethodSearchUsers, in, opts)
}

func (c *MessengerClient) CreateConversation(ctx context.Context, in *CreateConversationRequest, opts ...grpc.CallOption) (*CreateConversationResponse, error) {
	return invoke[CreateConversationResponse](ctx, c.cc, MethodCreateConversation, in, opts)
}

func (c *MessengerClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, MethodSendMessage, in, opts)
}

func (c *MessengerClient) UploadProfilePicture(ctx context.Context, in *UploadProfilePictureRequest, opts ...grpc.CallOption) (*UploadProfilePictureResponse, error) {
	return invoke[UploadProfilePictureResponse](ctx, c.cc, MethodUploadProfilePicture, in, opts)
}

func (c *MessengerClient) GetProfilePictureURL(ctx context.Context, in *GetProfilePictureURLRequest, opts ...grpc.CallOption) (*GetProfilePictureURLResponse, error) {
	return invoke[GetProfilePictureURLResponse](ctx, c.cc, MethodGetProfilePictureURL, in, opts)
}

func (c *MessengerClient) WatchConversations(ctx context.Context, in *WatchConversationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ConversationsUpdate], error) {
	return openStream[WatchConversationsRequest, ConversationsUpdate](ctx, c.cc, &serviceDesc.Streams[0], MethodWatchConversations, in, opts)
}

func (c *MessengerClient) WatchMessages(ctx context.Context, in *WatchMessagesRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MessagesUpdate], error) {
	return openStream[WatchMessagesRequest, MessagesUpdate](ctx, c.cc, &serviceDesc.Streams[1], MethodWatchMessages, in, opts)
}
