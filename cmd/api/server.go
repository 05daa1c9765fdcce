package main

import (
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"

	v1 "github.com/PaulBabatuyi/messenger-sync/api/chat/v1"
	"github.com/PaulBabatuyi/messenger-sync/internal/auth"
	"github.com/PaulBabatuyi/messenger-sync/internal/data"
	"github.com/PaulBabatuyi/messenger-sync/internal/media"
)

// maxRecvMsgBytes admits a MaxPictureBytes upload once the JSON codec has
// base64-encoded it, plus room for the envelope.
const maxRecvMsgBytes = media.MaxPictureBytes*4/3 + 64*1024

// Server implements the messenger service on top of the data and media
// layers.
type Server struct {
	users    *data.UsersStore
	convs    *data.ConversationsStore
	media    *media.Store
	auth     *auth.JWTManager
	hub      *SubscriptionHub
	validate *validator.Validate
	now      func() time.Time
}

// newServer returns a ready-to-use Server.
func newServer(users *data.UsersStore, convs *data.ConversationsStore, pictures *media.Store, authMgr *auth.JWTManager, hub *SubscriptionHub) *Server {
	return &Server{
		users:    users,
		convs:    convs,
		media:    pictures,
		auth:     authMgr,
		hub:      hub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// registerService registers the messenger service on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	v1.RegisterMessengerServer(s, srv)
}
