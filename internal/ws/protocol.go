package ws

import (
	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
)

type MessageType string

const (
	MsgConnected MessageType = "connected"
	MsgError     MessageType = "error"
)

// Message is the frame written to sockets. Notifications use their kind
// (xp_earned, level_up, ...) as the type.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

type ConnectedPayload struct {
	UserID uuid.UUID `json:"userId"`
}

func notificationMessage(n gamification.Notification) Message {
	return Message{Type: MessageType(n.Kind), Payload: n}
}

// envelope carries a notification between instances over Redis.
type envelope struct {
	UserID       uuid.UUID                 `json:"userId"`
	Notification gamification.Notification `json:"notification"`
}
