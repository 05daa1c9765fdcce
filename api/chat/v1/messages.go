package v1

import "time"

// RegisterRequest signs a new user up.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name" validate:"required,max=64"`
}

func (r *RegisterRequest) GetEmail() string { return r.Email }

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) GetEmail() string { return r.Email }

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Token     string    `json:"token"`
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserExistsRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type UserExistsResponse struct {
	Exists bool `json:"exists"`
}

type SearchUsersRequest struct {
	Query string `json:"query" validate:"required,max=128"`
}

// UserResult is one directory match.
type UserResult struct {
	Name     string `json:"name"`
	Identity string `json:"identity"`
}

type SearchUsersResponse struct {
	Users []UserResult `json:"users"`
}

// CreateConversationRequest opens a conversation with a first text message.
type CreateConversationRequest struct {
	OtherEmail string `json:"other_email" validate:"required,email,max=254"`
	OtherName  string `json:"other_name" validate:"required,max=129"`
	Text       string `json:"text" validate:"required,max=4096"`
}

type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// SendMessageRequest appends a text message. The counterpart is taken from
// the caller's own conversation summary.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,startswith=conversation_,excludes=/,max=128"`
	Text           string `json:"text" validate:"required,max=4096"`
}

type SendMessageResponse struct {
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}

type UploadProfilePictureRequest struct {
	Data []byte `json:"data" validate:"required"`
}

type UploadProfilePictureResponse struct {
	URL string `json:"url"`
}

// GetProfilePictureURLRequest looks up a user's picture; an empty identity
// means the caller.
type GetProfilePictureURLRequest struct {
	Identity string `json:"identity,omitempty" validate:"omitempty,max=254,excludes=/"`
}

type GetProfilePictureURLResponse struct {
	URL string `json:"url"`
}

type WatchConversationsRequest struct{}

// LatestMessage is the snapshot shown in a conversation list.
type LatestMessage struct {
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
	IsRead bool      `json:"is_read"`
}

type Conversation struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	OtherIdentity string        `json:"other_identity"`
	LatestMessage LatestMessage `json:"latest_message"`
}

// ConversationsUpdate is the full conversation list after a change.
type ConversationsUpdate struct {
	Conversations []Conversation `json:"conversations"`
}

type WatchMessagesRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,startswith=conversation_,excludes=/,max=128"`
}

type Message struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Text           string    `json:"text"`
	SenderIdentity string    `json:"sender_identity"`
	SenderName     string    `json:"sender_name"`
	SentAt         time.Time `json:"sent_at"`
	IsRead         bool      `json:"is_read"`
}

// MessagesUpdate is the full message log, in stored order, after a change.
type MessagesUpdate struct {
	Messages []Message `json:"messages"`
}
