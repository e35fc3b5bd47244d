package repository

import (
	"context"
	"errors"

	"github.com/fikri221/linking-up/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrRoomNotFound    = errors.New("chat room not found")
	ErrRoomExists      = errors.New("chat room already exists for pair")
	ErrMessageNotFound = errors.New("message not found")
)

// UserRepository defines the interface for user data persistence.
// Password hashing happens in the service layer; the repository only
// stores and returns hashes.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	ListExcept(ctx context.Context, userID string) ([]domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// ChatRoomRepository defines the interface for chat room persistence.
type ChatRoomRepository interface {
	// Create inserts a new room. A concurrent insert for the same pair
	// fails with ErrRoomExists; callers re-fetch the winner.
	Create(ctx context.Context, room *domain.ChatRoom) error
	GetByID(ctx context.Context, id string) (*domain.ChatRoom, error)
	// FindByPair locates the room for an unordered participant pair.
	FindByPair(ctx context.Context, userA, userB string) (*domain.ChatRoom, error)
	ListByParticipant(ctx context.Context, userID string) ([]domain.ChatRoom, error)
}

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	MarkRead(ctx context.Context, id string) error
	// ListByRoom returns messages in insertion order.
	ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error)
}
