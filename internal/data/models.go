package data

import (
	"time"

	"github.com/PaulBabatuyi/messenger-sync/internal/normalize"
)

// ChatAppUser is a user as supplied at sign-up.
type ChatAppUser struct {
	FirstName    string
	LastName     string
	EmailAddress string
}

// Identity is the user's path-safe key.
func (u ChatAppUser) Identity() string {
	return normalize.Identity(u.EmailAddress)
}

// DisplayName is the name shown in the user directory and on messages.
func (u ChatAppUser) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// ProfilePictureFileName is the media object name of the user's picture.
func (u ChatAppUser) ProfilePictureFileName() string {
	return normalize.ProfilePictureFileName(u.Identity())
}

// User is a stored user record.
type User struct {
	Identity  string
	FirstName string
	LastName  string
}

// DisplayName joins first and last name.
func (u User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// userRecord maps to /<identity>. Conversations live below it at
// /<identity>/conversations and are written separately.
type userRecord struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DirectoryEntry maps to one element of /users.
type DirectoryEntry struct {
	Name  string `json:"name"`
	Email string `json:"email"` // normalized identity, not the raw address
}

// Credentials maps to /credentials/<identity>.
type Credentials struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// LatestMessage is the snapshot embedded in a conversation summary.
type LatestMessage struct {
	Date    string `json:"date"`
	Message string `json:"message"`
	IsRead  bool   `json:"is_read"`
}

// ConversationSummary maps to one element of /<identity>/conversations.
// Both participants hold their own copy.
type ConversationSummary struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	OtherUserEmail string        `json:"other_user_email"`
	LatestMessage  LatestMessage `json:"latest_message"`
}

// MessageRecord maps to one element of /conversation_<id>/messages.
type MessageRecord struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	SenderEmail string `json:"sender_email"`
	Date        string `json:"date"`
	IsRead      bool   `json:"is_read"`
	Name        string `json:"name"`
}

// MessageKind tags the content of a message.
type MessageKind string

// KindText is the only kind written today.
const KindText MessageKind = "text"

// Sender identifies who wrote a message.
type Sender struct {
	Identity    string
	DisplayName string
	PhotoURL    string
}

// Message is the typed view of a message record.
type Message struct {
	ID       string
	Kind     MessageKind
	Text     string
	Sender   Sender
	SentDate time.Time
	IsRead   bool
}

// Conversation is the typed view of a conversation summary.
type Conversation struct {
	ID                string
	Name              string
	OtherUserIdentity string
	LatestMessage     LatestMessageView
}

// LatestMessageView is the typed view of a latest-message snapshot.
type LatestMessageView struct {
	Date   time.Time
	Text   string
	IsRead bool
}
