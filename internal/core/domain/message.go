package domain

import "time"

// Message is append-only.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id" validate:"required"`
	RecipientID string    `json:"recipient_id"`
	Text        string    `json:"text" validate:"required"`
	Read        bool      `json:"read"`
	Origin      Origin    `json:"origin" validate:"omitempty,oneof=api local"`
	SentAt      time.Time `json:"sent_at"`
}

// Conversation is keyed by the other participant's id.
type Conversation struct {
	PeerID        string    `json:"peer_id" validate:"required"`
	Messages      []Message `json:"messages" validate:"dive"`
	Unread        int       `json:"unread" validate:"gte=0"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	Peer        UserRef   `json:"peer"`
	LastMessage *Message  `json:"last_message,omitempty"`
	Unread      int       `json:"unread"`
	UpdatedAt   time.Time `json:"updated_at"`
}
