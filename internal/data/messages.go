package data

import (
	"encoding/json"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

var errMalformedMessage = errors.New("malformed message record")

// NewTextMessage builds an outgoing text message with a fresh, time-ordered
// id. The sender is filled in by the synchronizer.
func NewTextMessage(text string, sentAt time.Time) Message {
	return Message{
		ID:       ulid.Make().String(),
		Kind:     KindText,
		Text:     text,
		SentDate: sentAt,
	}
}

// EncodeMessage maps a message to its stored record.
func EncodeMessage(m Message) MessageRecord {
	kind := m.Kind
	if kind == "" {
		kind = KindText
	}
	return MessageRecord{
		ID:          m.ID,
		Type:        string(kind),
		Content:     m.Text,
		SenderEmail: m.Sender.Identity,
		Date:        FormatDate(m.SentDate),
		IsRead:      m.IsRead,
		Name:        m.Sender.DisplayName,
	}
}

// DecodeMessage maps a stored record back to a message. Records without an
// id or sender, with an unknown type or with an unparseable date are
// malformed.
func DecodeMessage(rec MessageRecord) (Message, error) {
	if rec.ID == "" || rec.SenderEmail == "" {
		return Message{}, errors.Wrap(errMalformedMessage, "missing id or sender")
	}
	if MessageKind(rec.Type) != KindText {
		return Message{}, errors.Wrapf(errMalformedMessage, "unsupported type %q", rec.Type)
	}
	sent, err := ParseDate(rec.Date)
	if err != nil {
		return Message{}, errors.Wrap(errMalformedMessage, err.Error())
	}
	return Message{
		ID:   rec.ID,
		Kind: KindText,
		Text: rec.Content,
		Sender: Sender{
			Identity:    rec.SenderEmail,
			DisplayName: rec.Name,
		},
		SentDate: sent,
		IsRead:   rec.IsRead,
	}, nil
}

// DecodeMessages projects a message log node into messages in stored order,
// which is append order. No sort by date is applied. Malformed records are
// skipped; only an absent or wrong-shaped log is an error.
func DecodeMessages(node store.Node) ([]Message, error) {
	if !node.Exists() {
		return nil, errors.Wrapf(store.ErrNotFound, "%s", node.Path)
	}

	// node is either the log itself or its messages child
	raw := node.Raw
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err == nil {
		if msgs, ok := doc["messages"]; ok {
			raw = msgs
		}
	}

	list, err := decodeList(raw)
	if err != nil {
		return nil, errors.Wrapf(store.ErrNotFound, "%s: %v", node.Path, err)
	}

	messages := make([]Message, 0, len(list))
	for i, item := range list {
		var rec MessageRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			glog.V(2).Infof("data: skipping message %d in %s: %v", i, node.Path, err)
			continue
		}
		m, err := DecodeMessage(rec)
		if err != nil {
			glog.V(2).Infof("data: skipping message %d in %s: %v", i, node.Path, err)
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}
