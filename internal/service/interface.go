package service

import (
	"context"

	"github.com/fikri221/linking-up/internal/domain"
)

// UserService handles accounts and sessions.
type UserService interface {
	SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.SignUpResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) (*domain.UserResponse, error)
	ListContacts(ctx context.Context, userID string) ([]domain.UserResponse, error)
}

// ChatService handles chat rooms and the message lifecycle. Every method
// assumes the caller identity was already established by the auth gate.
type ChatService interface {
	AddMessage(ctx context.Context, req *domain.AddMessageRequest) (*domain.Message, error)
	EditMessage(ctx context.Context, messageID, content string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	MarkMessageAsRead(ctx context.Context, callerID, messageID string) (*domain.Message, error)
	ListMessages(ctx context.Context, roomID string) ([]domain.Message, error)
	ListRooms(ctx context.Context, callerID string) ([]domain.ChatRoom, error)
}
