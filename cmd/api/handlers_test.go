package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	v1 "github.com/PaulBabatuyi/messenger-sync/api/chat/v1"
	"github.com/PaulBabatuyi/messenger-sync/internal/auth"
	"github.com/PaulBabatuyi/messenger-sync/internal/data"
	"github.com/PaulBabatuyi/messenger-sync/internal/media"
	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	nodes := store.NewMemory()
	srv := newServer(
		data.NewUsersStore(nodes, data.Optimistic),
		data.NewConversationsStore(nodes, data.Optimistic),
		media.New(media.NewMemory()),
		auth.NewJWTManager("test-secret", time.Hour),
		NewSubscriptionHub(),
	)
	srv.now = func() time.Time { return fixedNow }
	return srv, nodes
}

// asUser returns a context carrying claims for identity, as the auth
// interceptor would.
func asUser(identity, email string) context.Context {
	return context.WithValue(context.Background(), authContextKey{}, &auth.Claims{Identity: identity, Email: email})
}

func register(t *testing.T, srv *Server, email, first, last string) *v1.AuthResponse {
	t.Helper()
	resp, err := srv.Register(context.Background(), &v1.RegisterRequest{
		Email: email, Password: "testPass123", FirstName: first, LastName: last,
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return resp
}

func TestRegisterAndLoginHandlers(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	resp := register(t, srv, "Ann.Bee@Example.com", "Ann", "Bee")
	if resp.Identity != "ann-bee-example-com" || resp.Token == "" {
		t.Fatalf("unexpected register response: %+v", resp)
	}
	claims, err := srv.auth.VerifyToken(resp.Token)
	if err != nil || claims.Identity != "ann-bee-example-com" || claims.Email != "ann.bee@example.com" {
		t.Fatalf("unexpected claims: %+v %v", claims, err)
	}

	_, err = srv.Register(ctx, &v1.RegisterRequest{Email: "ann.bee@example.com", Password: "testPass123", FirstName: "A", LastName: "B"})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if _, err := srv.Login(ctx, &v1.LoginRequest{Email: "ANN.BEE@example.com", Password: "testPass123"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := srv.Login(ctx, &v1.LoginRequest{Email: "ann.bee@example.com", Password: "wrong"}); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if _, err := srv.Login(ctx, &v1.LoginRequest{Email: "ghost@example.com", Password: "x"}); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	exists, err := srv.UserExists(asUser("x", "x"), &v1.UserExistsRequest{Email: "ann.bee@example.com"})
	if err != nil || !exists.Exists {
		t.Fatalf("UserExists = %+v, %v", exists, err)
	}
}

func TestConversationHandlers(t *testing.T) {
	srv, nodes := newTestServer(t)
	register(t, srv, "a@b.com", "Ann", "Bee")
	register(t, srv, "c@d.com", "Cid", "Dee")

	alice := asUser("a-b-com", "a@b.com")
	created, err := srv.CreateConversation(alice, &v1.CreateConversationRequest{OtherEmail: "c@d.com", OtherName: "Cid Dee", Text: "hi"})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if created.ConversationID != "conversation_"+created.MessageID {
		t.Fatalf("unexpected ids: %+v", created)
	}

	cid := asUser("c-d-com", "c@d.com")
	sent, err := srv.SendMessage(cid, &v1.SendMessageRequest{ConversationID: created.ConversationID, Text: "how are you"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if !sent.SentAt.Equal(fixedNow) {
		t.Fatalf("unexpected sent time %v", sent.SentAt)
	}

	node, err := nodes.Get(context.Background(), "/a-b-com/conversations")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	convs, err := data.DecodeConversations(node)
	if err != nil || len(convs) != 1 || convs[0].LatestMessage.Text != "how are you" {
		t.Fatalf("unexpected conversations: %+v %v", convs, err)
	}

	// outsiders cannot post into the conversation
	register(t, srv, "e@f.com", "Eve", "Eff")
	_, err = srv.SendMessage(asUser("e-f-com", "e@f.com"), &v1.SendMessageRequest{ConversationID: created.ConversationID, Text: "sneaky"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for outsider, got %v", err)
	}

	_, err = srv.CreateConversation(alice, &v1.CreateConversationRequest{OtherEmail: "ghost@x.com", OtherName: "Ghost", Text: "hi"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for unknown recipient, got %v", err)
	}
	_, err = srv.CreateConversation(alice, &v1.CreateConversationRequest{OtherEmail: "A@B.com", OtherName: "Me", Text: "hi"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for self conversation, got %v", err)
	}

	found, err := srv.SearchUsers(alice, &v1.SearchUsersRequest{Query: "e"})
	if err != nil || len(found.Users) != 1 || found.Users[0].Identity != "e-f-com" {
		t.Fatalf("unexpected search result: %+v %v", found, err)
	}
}

func TestHandlersRequireClaims(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.SearchUsers(context.Background(), &v1.SearchUsersRequest{Query: "a"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestProfilePictureHandlers(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := asUser("a-b-com", "a@b.com")

	if _, err := srv.GetProfilePictureURL(alice, &v1.GetProfilePictureURLRequest{}); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound before upload, got %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	up, err := srv.UploadProfilePicture(alice, &v1.UploadProfilePictureRequest{Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("UploadProfilePicture failed: %v", err)
	}
	if up.URL != "memory:///images/a-b-com_profile_picture.png" {
		t.Fatalf("unexpected url %q", up.URL)
	}

	got, err := srv.GetProfilePictureURL(asUser("c-d-com", "c@d.com"), &v1.GetProfilePictureURLRequest{Identity: "a-b-com"})
	if err != nil || got.URL != up.URL {
		t.Fatalf("GetProfilePictureURL = %+v, %v", got, err)
	}

	_, err = srv.UploadProfilePicture(alice, &v1.UploadProfilePictureRequest{Data: []byte("nope")})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for bad picture, got %v", err)
	}
}

// fakeStream captures what a watch handler sends.
type fakeStream[T any] struct {
	ctx  context.Context
	sent chan *T
}

func newFakeStream[T any](ctx context.Context) *fakeStream[T] {
	return &fakeStream[T]{ctx: ctx, sent: make(chan *T, 16)}
}

func (f *fakeStream[T]) Send(m *T) error              { f.sent <- m; return nil }
func (f *fakeStream[T]) Context() context.Context     { return f.ctx }
func (f *fakeStream[T]) SetHeader(metadata.MD) error  { return nil }
func (f *fakeStream[T]) SendHeader(metadata.MD) error { return nil }
func (f *fakeStream[T]) SetTrailer(metadata.MD)       {}
func (f *fakeStream[T]) SendMsg(m any) error          { return nil }
func (f *fakeStream[T]) RecvMsg(m any) error          { return nil }

func (f *fakeStream[T]) next(t *testing.T) *T {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for stream update")
	}
	return nil
}

func TestWatchConversationsHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "a@b.com", "Ann", "Bee")
	register(t, srv, "c@d.com", "Cid", "Dee")

	stream := newFakeStream[v1.ConversationsUpdate](asUser("c-d-com", "c@d.com"))
	done := make(chan error, 1)
	go func() { done <- srv.WatchConversations(&v1.WatchConversationsRequest{}, stream) }()

	if first := stream.next(t); len(first.Conversations) != 0 {
		t.Fatalf("expected empty initial list, got %+v", first)
	}

	alice := asUser("a-b-com", "a@b.com")
	if _, err := srv.CreateConversation(alice, &v1.CreateConversationRequest{OtherEmail: "c@d.com", OtherName: "Cid Dee", Text: "hi"}); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	update := stream.next(t)
	if len(update.Conversations) != 1 || update.Conversations[0].OtherIdentity != "a-b-com" || update.Conversations[0].LatestMessage.Text != "hi" {
		t.Fatalf("unexpected update: %+v", update)
	}

	if srv.hub.Active("c-d-com") != 1 {
		t.Fatalf("expected stream to be tracked by the hub")
	}
	srv.hub.CancelAll()
	select {
	case err := <-done:
		if status.Code(err) != codes.Unavailable {
			t.Fatalf("expected Unavailable on shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not end after CancelAll")
	}
}

func TestWatchMessagesHandlerRejectsOutsiders(t *testing.T) {
	srv, _ := newTestServer(t)
	stream := newFakeStream[v1.MessagesUpdate](asUser("e-f-com", "e@f.com"))

	err := srv.WatchMessages(&v1.WatchMessagesRequest{ConversationID: "conversation_x"}, stream)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	err = srv.WatchMessages(&v1.WatchMessagesRequest{ConversationID: "users"}, stream)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
