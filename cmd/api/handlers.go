package main

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/PaulBabatuyi/messenger-sync/api/chat/v1"
	"github.com/PaulBabatuyi/messenger-sync/internal/auth"
	"github.com/PaulBabatuyi/messenger-sync/internal/data"
	"github.com/PaulBabatuyi/messenger-sync/internal/normalize"
	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

func claimsOrError(ctx context.Context) (*auth.Claims, error) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	return claims, nil
}

// Register stores credentials and the user record, then returns a token.
func (s *Server) Register(ctx context.Context, req *v1.RegisterRequest) (*v1.AuthResponse, error) {
	user := data.ChatAppUser{FirstName: req.FirstName, LastName: req.LastName, EmailAddress: req.Email}
	identity := user.Identity()

	exists, err := s.users.UserExists(ctx, identity)
	if err != nil {
		return nil, toStatus("register", err)
	}
	if exists {
		return nil, status.Errorf(codes.AlreadyExists, "user already exists")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to hash password: %v", err)
	}
	creds := data.Credentials{Email: normalize.Email(req.Email), PasswordHash: hashed}
	if err := s.users.SaveCredentials(ctx, identity, creds); err != nil {
		return nil, toStatus("register", err)
	}

	// a user missing from the directory can still chat, just not be found
	if err := s.users.InsertUser(ctx, user); err != nil && !errors.Is(err, data.ErrDirectoryUpdate) {
		return nil, toStatus("register", err)
	}
	glog.Infof("api: registered %s", identity)

	return s.issueToken(identity, creds.Email)
}

// Login checks the password and returns a token.
func (s *Server) Login(ctx context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error) {
	identity := normalize.Identity(req.Email)
	creds, err := s.users.GetCredentials(ctx, identity)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, status.Errorf(codes.NotFound, "user not found")
	}
	if err != nil {
		return nil, toStatus("login", err)
	}

	if err := auth.CheckPassword(creds.PasswordHash, req.Password); err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "invalid credentials")
	}
	return s.issueToken(identity, creds.Email)
}

func (s *Server) issueToken(identity, email string) (*v1.AuthResponse, error) {
	token, expiresAt, err := s.auth.GenerateToken(identity, email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}
	return &v1.AuthResponse{Token: token, Identity: identity, ExpiresAt: expiresAt}, nil
}

// UserExists reports whether an account exists for the email.
func (s *Server) UserExists(ctx context.Context, req *v1.UserExistsRequest) (*v1.UserExistsResponse, error) {
	exists, err := s.users.UserExists(ctx, normalize.Identity(req.Email))
	if err != nil {
		return nil, toStatus("user exists", err)
	}
	return &v1.UserExistsResponse{Exists: exists}, nil
}

// SearchUsers matches the query against directory names, leaving out the caller.
func (s *Server) SearchUsers(ctx context.Context, req *v1.SearchUsersRequest) (*v1.SearchUsersResponse, error) {
	claims, err := claimsOrError(ctx)
	if err != nil {
		return nil, err
	}
	found, err := s.users.SearchUsers(ctx, req.Query, claims.Identity)
	if err != nil {
		return nil, toStatus("search users", err)
	}

	resp := &v1.SearchUsersResponse{Users: make([]v1.UserResult, 0, len(found))}
	for _, e := range found {
		resp.Users = append(resp.Users, v1.UserResult{Name: e.Name, Identity: e.Email})
	}
	return resp, nil
}

// CreateConversation opens a conversation with another registered user.
func (s *Server) CreateConversation(ctx context.Context, req *v1.CreateConversationRequest) (*v1.CreateConversationResponse, error) {
	claims, err := claimsOrError(ctx)
	if err != nil {
		return nil, err
	}
	self, err := s.users.GetUser(ctx, claims.Identity)
	if err != nil {
		return nil, toStatus("create conversation", err)
	}

	other := normalize.Identity(req.OtherEmail)
	if other == claims.Identity {
		return nil, status.Errorf(codes.InvalidArgument, "cannot start a conversation with yourself")
	}
	exists, err := s.users.UserExists(ctx, other)
	if err != nil {
		return nil, toStatus("create conversation", err)
	}
	if !exists {
		return nil, status.Errorf(codes.NotFound, "recipient not found")
	}

	msg := data.NewTextMessage(req.Text, s.now())
	id, err := s.convs.CreateNewConversation(ctx, claims.Identity, self.DisplayName(), req.OtherEmail, req.OtherName, msg)
	if err != nil {
		return nil, toStatus("create conversation", err)
	}
	return &v1.CreateConversationResponse{ConversationID: id, MessageID: msg.ID}, nil
}

// SendMessage appends to a conversation the caller takes part in.
func (s *Server) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.SendMessageResponse, error) {
	claims, err := claimsOrError(ctx)
	if err != nil {
		return nil, err
	}
	self, err := s.users.GetUser(ctx, claims.Identity)
	if err != nil {
		return nil, toStatus("send message", err)
	}
	conv, err := s.convs.GetConversation(ctx, claims.Identity, req.ConversationID)
	if err != nil {
		return nil, toStatus("send message", err)
	}

	msg := data.NewTextMessage(req.Text, s.now())
	if err := s.convs.SendMessage(ctx, req.ConversationID, claims.Identity, conv.OtherUserIdentity, self.DisplayName(), msg); err != nil {
		return nil, toStatus("send message", err)
	}
	return &v1.SendMessageResponse{MessageID: msg.ID, SentAt: msg.SentDate}, nil
}

// UploadProfilePicture stores the caller's picture.
func (s *Server) UploadProfilePicture(ctx context.Context, req *v1.UploadProfilePictureRequest) (*v1.UploadProfilePictureResponse, error) {
	claims, err := claimsOrError(ctx)
	if err != nil {
		return nil, err
	}
	url, err := s.media.UploadProfilePicture(ctx, req.Data, normalize.ProfilePictureFileName(claims.Identity))
	if err != nil {
		return nil, toStatus("upload profile picture", err)
	}
	return &v1.UploadProfilePictureResponse{URL: url}, nil
}

// GetProfilePictureURL resolves a user's picture, the caller's by default.
func (s *Server) GetProfilePictureURL(ctx context.Context, req *v1.GetProfilePictureURLRequest) (*v1.GetProfilePictureURLResponse, error) {
	claims, err := claimsOrError(ctx)
	if err != nil {
		return nil, err
	}
	identity := req.Identity
	if identity == "" {
		identity = claims.Identity
	}
	url, err := s.media.DownloadURL(ctx, normalize.ProfilePicturePath(identity))
	if err != nil {
		return nil, toStatus("get profile picture url", err)
	}
	return &v1.GetProfilePictureURLResponse{URL: url}, nil
}

// WatchConversations streams the caller's conversation list, once now and
// again after every change, until the client goes away.
func (s *Server) WatchConversations(req *v1.WatchConversationsRequest, stream grpc.ServerStreamingServer[v1.ConversationsUpdate]) error {
	claims, err := claimsOrError(stream.Context())
	if err != nil {
		return err
	}
	ctx, id := s.hub.Register(stream.Context(), claims.Identity)
	defer s.hub.Unregister(claims.Identity, id)

	feed, err := s.convs.GetAllConversations(ctx, claims.Identity)
	if err != nil {
		return toStatus("watch conversations", err)
	}
	defer feed.Close()

	return pump(ctx, s.hub, feed, func(u data.Update[data.Conversation]) error {
		if u.Err != nil && !errors.Is(u.Err, store.ErrNotFound) {
			return toStatus("watch conversations", u.Err)
		}
		// no list yet is an empty list
		out := &v1.ConversationsUpdate{Conversations: make([]v1.Conversation, 0, len(u.Items))}
		for _, c := range u.Items {
			out.Conversations = append(out.Conversations, v1.Conversation{
				ID:            c.ID,
				Name:          c.Name,
				OtherIdentity: c.OtherUserIdentity,
				LatestMessage: v1.LatestMessage{
					Text:   c.LatestMessage.Text,
					Date:   c.LatestMessage.Date,
					IsRead: c.LatestMessage.IsRead,
				},
			})
		}
		return stream.Send(out)
	})
}

// WatchMessages streams a conversation's messages in stored order.
func (s *Server) WatchMessages(req *v1.WatchMessagesRequest, stream grpc.ServerStreamingServer[v1.MessagesUpdate]) error {
	claims, err := claimsOrError(stream.Context())
	if err != nil {
		return err
	}
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	if _, err := s.convs.GetConversation(stream.Context(), claims.Identity, req.ConversationID); err != nil {
		return toStatus("watch messages", err)
	}

	ctx, id := s.hub.Register(stream.Context(), claims.Identity)
	defer s.hub.Unregister(claims.Identity, id)

	feed, err := s.convs.GetAllMessagesForConversation(ctx, req.ConversationID)
	if err != nil {
		return toStatus("watch messages", err)
	}
	defer feed.Close()

	return pump(ctx, s.hub, feed, func(u data.Update[data.Message]) error {
		if u.Err != nil {
			return toStatus("watch messages", u.Err)
		}
		out := &v1.MessagesUpdate{Messages: make([]v1.Message, 0, len(u.Items))}
		for _, m := range u.Items {
			out.Messages = append(out.Messages, v1.Message{
				ID:             m.ID,
				Kind:           string(m.Kind),
				Text:           m.Text,
				SenderIdentity: m.Sender.Identity,
				SenderName:     m.Sender.DisplayName,
				SentAt:         m.SentDate,
				IsRead:         m.IsRead,
			})
		}
		return stream.Send(out)
	})
}

// pump forwards feed updates through send until the feed ends or ctx is
// cancelled.
func pump[T any](ctx context.Context, hub *SubscriptionHub, feed *data.Feed[T], send func(data.Update[T]) error) error {
	for {
		select {
		case u, ok := <-feed.C:
			if !ok {
				return streamEnd(ctx, hub)
			}
			if err := send(u); err != nil {
				if _, isStatus := status.FromError(err); isStatus {
					return err
				}
				return status.Errorf(codes.Unavailable, "send update: %v", err)
			}
		case <-ctx.Done():
			return streamEnd(ctx, hub)
		}
	}
}

func streamEnd(ctx context.Context, hub *SubscriptionHub) error {
	if hub.Closed() {
		return status.Errorf(codes.Unavailable, "server shutting down")
	}
	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}
	return status.Errorf(codes.Unavailable, "subscription ended")
}
