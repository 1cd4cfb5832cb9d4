package domain

import (
	"time"

	taskdomain "github.com/dgibisch/doit2-sub002/internal/task/domain"
)

// SystemSender is the sender id of messages appended by the backend itself
// (location disclosures) rather than by a participant.
const SystemSender = "system"

// Chat is a two-participant thread scoped to one task. At most one chat
// exists per (task, applicant) pair. LastMessage and LastMessageTimestamp
// are denormalized for list rendering and updated best-effort.
type Chat struct {
	ID                   string    `json:"id"`
	TaskID               string    `json:"task_id"`
	TaskTitle            string    `json:"task_title"`
	Participants         []string  `json:"participants"` // creator and applicant
	LastMessage          string    `json:"last_message,omitempty"`
	LastMessageTimestamp time.Time `json:"last_message_timestamp,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// MessageType discriminates the payload of a chat message.
type MessageType string

const (
	MessageTypeText             MessageType = "text"
	MessageTypeLocationRequest  MessageType = "location_request"
	MessageTypeLocationResponse MessageType = "location_response"
	MessageTypeLocationShared   MessageType = "location_shared"
)

// Message is one append-only entry of a chat's message stream. Messages are
// never edited or deleted after creation.
type Message struct {
	ID       string      `json:"id"`
	ChatID   string      `json:"chat_id"`
	SenderID string      `json:"sender_id"`
	Type     MessageType `json:"type"`
	// Content is the text payload of a text message or the human-readable
	// caption of a sub-protocol message.
	Content string `json:"content,omitempty"`
	// Approved is set on location_response messages only.
	Approved *bool `json:"approved,omitempty"`
	// Location is set on location_shared messages only and carries the
	// task's resolved address and coordinates.
	Location  *taskdomain.Location `json:"location,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// ChatSummary is a chat enriched with the viewer's unread state.
type ChatSummary struct {
	Chat
	Unread bool `json:"unread"`
}
