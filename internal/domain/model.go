package domain

import (
	"time"

	"github.com/fikri221/linking-up/pkg/database"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string    `gorm:"type:varchar(50);not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ChatRoomModel is the GORM model for the chat_rooms table.
// PairKey is the sorted participant pair joined with ':'. Its unique index
// is what guarantees at most one room per participant pair even when two
// requests race on the first message.
type ChatRoomModel struct {
	ID           string               `gorm:"type:varchar(36);primaryKey"`
	PairKey      string               `gorm:"type:varchar(73);uniqueIndex;not null"`
	Participants database.StringArray `gorm:"type:text;not null"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ChatRoomModel.
func (ChatRoomModel) TableName() string {
	return "chat_rooms"
}

// ToDomain converts ChatRoomModel to domain ChatRoom.
func (m *ChatRoomModel) ToDomain() *ChatRoom {
	return &ChatRoom{
		ID:             m.ID,
		ParticipantIDs: []string(m.Participants),
		CreatedAt:      m.CreatedAt,
	}
}

// ChatRoomToModel converts domain ChatRoom to ChatRoomModel.
func ChatRoomToModel(r *ChatRoom) *ChatRoomModel {
	return &ChatRoomModel{
		ID:           r.ID,
		PairKey:      RoomPairKey(r.ParticipantIDs[0], r.ParticipantIDs[1]),
		Participants: database.StringArray(r.ParticipantIDs),
		CreatedAt:    r.CreatedAt,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	ChatRoomID string    `gorm:"type:varchar(36);index;not null"`
	SenderID   string    `gorm:"type:varchar(36);index;not null"`
	Content    string    `gorm:"type:text"`
	IsRead     bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:         m.ID,
		ChatRoomID: m.ChatRoomID,
		SenderID:   m.SenderID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:         msg.ID,
		ChatRoomID: msg.ChatRoomID,
		SenderID:   msg.SenderID,
		Content:    msg.Content,
		IsRead:     msg.IsRead,
		CreatedAt:  msg.CreatedAt,
	}
}
