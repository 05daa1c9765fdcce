package data

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/PaulBabatuyi/messenger-sync/internal/normalize"
	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

func conversationsPath(identity string) string {
	return "/" + identity + "/conversations"
}

func conversationPath(conversationID string) string {
	return "/" + conversationID
}

func messagesPath(conversationID string) string {
	return "/" + conversationID + "/messages"
}

// ConversationsStore creates conversations and appends messages, keeping both
// participants' summaries in step. It keeps no state of its own; every call
// re-reads what it needs from the store.
type ConversationsStore struct {
	store store.Store
	mode  WriteMode
}

// NewConversationsStore returns a ConversationsStore writing through s.
func NewConversationsStore(s store.Store, mode WriteMode) *ConversationsStore {
	return &ConversationsStore{store: s, mode: effectiveMode(s, mode)}
}

// Mode is the write mode in effect after checking the backend.
func (c *ConversationsStore) Mode() WriteMode {
	return c.mode
}

// CreateNewConversation opens a conversation between the caller and
// otherEmail with first as its first message, and returns the conversation
// id. The writes happen one path at a time: counterpart summary, caller
// summary, then the message log. A counterpart summary failure is logged and
// does not stop the sequence; nothing is rolled back.
func (c *ConversationsStore) CreateNewConversation(ctx context.Context, selfIdentity, selfName, otherEmail, otherName string, first Message) (string, error) {
	if first.ID == "" {
		return "", errors.New("first message has no id")
	}
	if err := checkIdentity(selfIdentity); err != nil {
		return "", err
	}
	if _, err := c.store.Get(ctx, userPath(selfIdentity)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errors.Wrapf(ErrUserNotFound, "%s", selfIdentity)
		}
		return "", errors.Wrapf(err, "get user %s", selfIdentity)
	}

	otherIdentity := normalize.Identity(otherEmail)
	if err := checkIdentity(otherIdentity); err != nil {
		return "", err
	}
	conversationID := ConversationID(first.ID)
	latest := LatestMessage{
		Date:    FormatDate(first.SentDate),
		Message: first.Text,
		IsRead:  false,
	}

	theirs := ConversationSummary{
		ID:             conversationID,
		Name:           selfName,
		OtherUserEmail: selfIdentity,
		LatestMessage:  latest,
	}
	if err := c.upsertSummary(ctx, otherIdentity, theirs); err != nil {
		glog.Warningf("data: conversation %s: failed to add summary for %s: %v", conversationID, otherIdentity, err)
	}

	ours := ConversationSummary{
		ID:             conversationID,
		Name:           otherName,
		OtherUserEmail: otherIdentity,
		LatestMessage:  latest,
	}
	if err := c.upsertSummary(ctx, selfIdentity, ours); err != nil {
		glog.Errorf("data: conversation %s: failed to add summary for %s: %v", conversationID, selfIdentity, err)
		return "", err
	}

	first = withSender(first, selfIdentity, selfName)
	path := conversationPath(conversationID)
	log := map[string][]MessageRecord{"messages": {EncodeMessage(first)}}
	if err := c.store.Set(ctx, path, log); err != nil {
		glog.Errorf("data: conversation %s: failed to write message log: %v", conversationID, err)
		return "", writeFailed(path, err)
	}

	glog.V(1).Infof("data: created %s between %s and %s", conversationID, selfIdentity, otherIdentity)
	return conversationID, nil
}

// SendMessage appends msg to an existing conversation and then refreshes the
// latest-message snapshot of the caller and of the counterpart, in that order.
// The first failure aborts the sequence; writes already made stay.
func (c *ConversationsStore) SendMessage(ctx context.Context, conversationID, selfIdentity, otherIdentity, senderName string, msg Message) error {
	if !validConversationID(conversationID) {
		return errors.Wrapf(ErrConversationNotFound, "%q", conversationID)
	}
	if err := checkIdentity(selfIdentity); err != nil {
		return err
	}
	if err := checkIdentity(otherIdentity); err != nil {
		return err
	}
	msg = withSender(msg, selfIdentity, senderName)
	record, err := json.Marshal(EncodeMessage(msg))
	if err != nil {
		return errors.Wrap(err, "encode message")
	}

	err = readModifyWrite(ctx, c.store, c.mode, conversationPath(conversationID), func(cur store.Node) (any, error) {
		if !cur.Exists() {
			return nil, errors.Wrapf(ErrConversationNotFound, "%s", conversationID)
		}
		var doc map[string]json.RawMessage
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrapf(ErrConversationNotFound, "%s: malformed log", conversationID)
		}
		list, err := decodeList(doc["messages"])
		if err != nil {
			return nil, errors.Wrapf(ErrConversationNotFound, "%s: malformed log", conversationID)
		}
		list = append(list, record)
		out, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		doc["messages"] = out
		return doc, nil
	})
	if err != nil {
		glog.Errorf("data: conversation %s: failed to append message: %v", conversationID, err)
		return err
	}

	latest := LatestMessage{
		Date:    FormatDate(msg.SentDate),
		Message: msg.Text,
		IsRead:  false,
	}
	for _, identity := range []string{selfIdentity, otherIdentity} {
		if err := c.updateLatest(ctx, identity, conversationID, latest); err != nil {
			glog.Errorf("data: conversation %s: failed to update summary for %s: %v", conversationID, identity, err)
			return err
		}
	}
	return nil
}

// GetAllConversations follows the caller's summary list. Each update carries
// every well-formed summary; an absent list yields an update with an error
// wrapping store.ErrNotFound.
func (c *ConversationsStore) GetAllConversations(ctx context.Context, identity string) (*Feed[Conversation], error) {
	if err := checkIdentity(identity); err != nil {
		return nil, err
	}
	sub, err := c.store.Observe(ctx, conversationsPath(identity))
	if err != nil {
		return nil, errors.Wrapf(err, "observe conversations of %s", identity)
	}
	return newFeed(sub, DecodeConversations), nil
}

// GetAllMessagesForConversation follows a conversation's message log in
// stored order.
func (c *ConversationsStore) GetAllMessagesForConversation(ctx context.Context, conversationID string) (*Feed[Message], error) {
	if !validConversationID(conversationID) {
		return nil, errors.Wrapf(ErrConversationNotFound, "%q", conversationID)
	}
	sub, err := c.store.Observe(ctx, messagesPath(conversationID))
	if err != nil {
		return nil, errors.Wrapf(err, "observe messages of %s", conversationID)
	}
	return newFeed(sub, DecodeMessages), nil
}

// upsertSummary appends s to the identity's summary list, or replaces the
// entry with the same id. An absent or malformed list is started afresh.
func (c *ConversationsStore) upsertSummary(ctx context.Context, identity string, s ConversationSummary) error {
	item, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return readModifyWrite(ctx, c.store, c.mode, conversationsPath(identity), func(cur store.Node) (any, error) {
		list, err := decodeList(cur.Raw)
		if err != nil {
			glog.Warningf("data: replacing malformed conversation list of %s: %v", identity, err)
			list = nil
		}
		return upsertEntry(list, s.ID, item), nil
	})
}

// updateLatest replaces the latest-message snapshot of one summary, leaving
// the rest of the entry and of the list as read.
func (c *ConversationsStore) updateLatest(ctx context.Context, identity, conversationID string, latest LatestMessage) error {
	snapshot, err := json.Marshal(latest)
	if err != nil {
		return errors.Wrap(err, "encode latest message")
	}
	return readModifyWrite(ctx, c.store, c.mode, conversationsPath(identity), func(cur store.Node) (any, error) {
		list, err := decodeList(cur.Raw)
		if err != nil {
			return nil, errors.Wrapf(ErrSummaryNotFound, "%s: malformed list", identity)
		}
		for i, raw := range list {
			if entryID(raw) != conversationID {
				continue
			}
			var entry map[string]json.RawMessage
			if err := json.Unmarshal(raw, &entry); err != nil {
				return nil, errors.Wrapf(ErrSummaryNotFound, "%s: malformed entry", identity)
			}
			entry["latest_message"] = snapshot
			if list[i], err = json.Marshal(entry); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, errors.Wrapf(ErrSummaryNotFound, "%s has no %s", identity, conversationID)
	})
}

func withSender(m Message, identity, name string) Message {
	if m.Sender.Identity == "" {
		m.Sender.Identity = identity
	}
	if m.Sender.DisplayName == "" {
		m.Sender.DisplayName = name
	}
	if m.Kind == "" {
		m.Kind = KindText
	}
	return m
}

func validConversationID(id string) bool {
	return strings.HasPrefix(id, "conversation_") && len(id) > len("conversation_") && !strings.Contains(id, "/")
}

// GetConversation returns the caller's summary of one conversation. It
// fails with ErrSummaryNotFound when the caller does not take part in it.
func (c *ConversationsStore) GetConversation(ctx context.Context, identity, conversationID string) (Conversation, error) {
	if err := checkIdentity(identity); err != nil {
		return Conversation{}, err
	}
	node, err := c.store.Get(ctx, conversationsPath(identity))
	if errors.Is(err, store.ErrNotFound) {
		return Conversation{}, errors.Wrapf(ErrSummaryNotFound, "%s has no conversations", identity)
	}
	if err != nil {
		return Conversation{}, errors.Wrapf(err, "get conversations of %s", identity)
	}
	conversations, err := DecodeConversations(node)
	if err != nil {
		return Conversation{}, errors.Wrapf(ErrSummaryNotFound, "%s: %v", identity, err)
	}
	for _, conv := range conversations {
		if conv.ID == conversationID {
			return conv, nil
		}
	}
	return Conversation{}, errors.Wrapf(ErrSummaryNotFound, "%s has no %s", identity, conversationID)
}
