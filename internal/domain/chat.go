package domain

import (
	"time"
)

// ChatRoom represents a private room shared by exactly two participants.
// ParticipantIDs is the stored shape; Participants is populated by the
// service layer when the caller needs the denormalized view.
type ChatRoom struct {
	ID             string         `json:"id"`
	ParticipantIDs []string       `json:"-"`
	Participants   []UserResponse `json:"participants,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Message represents a single message inside a chat room.
// SenderID is the stored shape; Sender is populated by the service layer.
type Message struct {
	ID         string        `json:"id"`
	ChatRoomID string        `json:"chat_room_id"`
	SenderID   string        `json:"-"`
	Sender     *UserResponse `json:"sender,omitempty"`
	Content    string        `json:"content"`
	IsRead     bool          `json:"is_read"`
	CreatedAt  time.Time     `json:"created_at"`
}

// RoomPairKey normalizes an unordered participant pair into a stable key.
// RoomPairKey(a, b) == RoomPairKey(b, a).
func RoomPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// PairKey returns the normalized key for this room's participant pair.
func (r *ChatRoom) PairKey() string {
	return RoomPairKey(r.ParticipantIDs[0], r.ParticipantIDs[1])
}

// HasParticipant reports whether the given user belongs to this room.
func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMessageRequest represents a send-message request.
type AddMessageRequest struct {
	SenderID    string `json:"sender_id" binding:"required"`
	RecipientID string `json:"recipient_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// EditMessageRequest represents an edit-message request.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
