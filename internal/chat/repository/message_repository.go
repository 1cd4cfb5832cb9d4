package repository

import (
	"context"
	"sort"

	"github.com/dgibisch/doit2-sub002/internal/chat/domain"
	taskdomain "github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// MessageRepository defines data access for chat messages. Messages are
// append-only; there is no update or delete.
type MessageRepository interface {
	// Append stores the message and returns it with the id and the
	// store-assigned timestamp filled in.
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// FindByChat returns the chat's messages in non-decreasing timestamp
	// order, ties broken by id.
	FindByChat(ctx context.Context, chatID string) ([]domain.Message, error)

	// SubscribeByChat streams the chat's full, ordered message list on
	// every change.
	SubscribeByChat(ctx context.Context, chatID string, fn func([]domain.Message)) (store.Unsubscribe, error)
}

type storeMessageRepository struct {
	store store.Store
}

func NewMessageRepository(s store.Store) MessageRepository {
	return &storeMessageRepository{store: s}
}

func (r *storeMessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	data := map[string]interface{}{
		"chatId":    msg.ChatID,
		"senderId":  msg.SenderID,
		"type":      string(msg.Type),
		"timestamp": store.ServerTimestamp,
	}
	if msg.Content != "" {
		data["content"] = msg.Content
	}
	if msg.Approved != nil {
		data["approved"] = *msg.Approved
	}
	if msg.Location != nil {
		data["location"] = map[string]interface{}{
			"address": msg.Location.Address,
			"coordinates": map[string]interface{}{
				"lat": msg.Location.Coordinates.Lat,
				"lng": msg.Location.Coordinates.Lng,
			},
		}
	}
	id, err := r.store.Add(ctx, store.CollectionMessages, data)
	if err != nil {
		return nil, err
	}

	// Read the document back so callers see the resolved timestamp.
	doc, err := r.store.Get(ctx, store.CollectionMessages, id)
	if err != nil {
		return nil, err
	}
	stored := messageFromDoc(doc)
	return &stored, nil
}

func (r *storeMessageRepository) FindByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	docs, err := r.store.Query(ctx, store.CollectionMessages, store.Eq("chatId", chatID))
	if err != nil {
		return nil, err
	}
	return messagesFromDocs(docs), nil
}

func (r *storeMessageRepository) SubscribeByChat(ctx context.Context, chatID string, fn func([]domain.Message)) (store.Unsubscribe, error) {
	return r.store.Subscribe(ctx, store.CollectionMessages,
		[]store.Filter{store.Eq("chatId", chatID)},
		func(docs []store.Document) {
			fn(messagesFromDocs(docs))
		})
}

func messagesFromDocs(docs []store.Document) []domain.Message {
	messages := make([]domain.Message, 0, len(docs))
	for i := range docs {
		messages = append(messages, messageFromDoc(&docs[i]))
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages
}

func messageFromDoc(doc *store.Document) domain.Message {
	msg := domain.Message{
		ID:        doc.ID,
		ChatID:    store.GetString(doc.Data, "chatId"),
		SenderID:  store.GetString(doc.Data, "senderId"),
		Type:      domain.MessageType(store.GetString(doc.Data, "type")),
		Content:   store.GetString(doc.Data, "content"),
		Timestamp: store.GetTime(doc.Data, "timestamp"),
	}
	if raw, ok := doc.Data["approved"].(bool); ok {
		msg.Approved = &raw
	}
	if loc := store.GetMap(doc.Data, "location"); loc != nil {
		location := &taskdomain.Location{Address: store.GetString(loc, "address")}
		if coords := store.GetMap(loc, "coordinates"); coords != nil {
			location.Coordinates.Lat = store.GetFloat(coords, "lat")
			location.Coordinates.Lng = store.GetFloat(coords, "lng")
		}
		msg.Location = location
	}
	return msg
}
