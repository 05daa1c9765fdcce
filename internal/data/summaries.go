package data

import (
	"encoding/json"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

// ConversationID is the id of the conversation opened by a first message.
func ConversationID(firstMessageID string) string {
	return "conversation_" + firstMessageID
}

// DecodeConversation maps a stored summary to a conversation. Summaries
// without an id or counterpart, or with an unparseable date, are malformed.
func DecodeConversation(s ConversationSummary) (Conversation, error) {
	if s.ID == "" || s.OtherUserEmail == "" {
		return Conversation{}, errors.New("missing id or other_user_email")
	}
	date, err := ParseDate(s.LatestMessage.Date)
	if err != nil {
		return Conversation{}, err
	}
	return Conversation{
		ID:                s.ID,
		Name:              s.Name,
		OtherUserIdentity: s.OtherUserEmail,
		LatestMessage: LatestMessageView{
			Date:   date,
			Text:   s.LatestMessage.Message,
			IsRead: s.LatestMessage.IsRead,
		},
	}, nil
}

// DecodeConversations projects a summary list node into conversations.
// Malformed entries are skipped; only an absent or non-list node is an error.
func DecodeConversations(node store.Node) ([]Conversation, error) {
	if !node.Exists() {
		return nil, errors.Wrapf(store.ErrNotFound, "%s", node.Path)
	}
	list, err := decodeList(node.Raw)
	if err != nil {
		return nil, errors.Wrapf(store.ErrNotFound, "%s: %v", node.Path, err)
	}

	conversations := make([]Conversation, 0, len(list))
	for i, item := range list {
		var s ConversationSummary
		if err := json.Unmarshal(item, &s); err != nil {
			glog.V(2).Infof("data: skipping conversation %d in %s: %v", i, node.Path, err)
			continue
		}
		c, err := DecodeConversation(s)
		if err != nil {
			glog.V(2).Infof("data: skipping conversation %d in %s: %v", i, node.Path, err)
			continue
		}
		conversations = append(conversations, c)
	}
	return conversations, nil
}
