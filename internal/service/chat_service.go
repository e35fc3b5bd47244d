package service

import (
	"context"
	"errors"
	"time"

	"github.com/fikri221/linking-up/internal/audit"
	"github.com/fikri221/linking-up/internal/cache"
	"github.com/fikri221/linking-up/internal/domain"
	"github.com/fikri221/linking-up/internal/repository"
	"github.com/fikri221/linking-up/pkg/log"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrSenderNotFound   = errors.New("sender not found")
	ErrAlreadyRead      = errors.New("message already marked as read")
	ErrNotMessageSender = errors.New("only the sender may mark this message as read")
)

// chatServiceImpl implements ChatService.
type chatServiceImpl struct {
	messages  repository.MessageRepository
	rooms     repository.ChatRoomRepository
	users     repository.UserRepository
	userCache cache.UserCache
	cacheTTL  time.Duration
}

// NewChatService creates a new chat service. cache may be nil.
func NewChatService(
	messages repository.MessageRepository,
	rooms repository.ChatRoomRepository,
	users repository.UserRepository,
	userCache cache.UserCache,
	cacheTTL time.Duration,
) ChatService {
	return &chatServiceImpl{
		messages:  messages,
		rooms:     rooms,
		users:     users,
		userCache: userCache,
		cacheTTL:  cacheTTL,
	}
}

// resolveRoom finds or creates the single room for an unordered pair.
// The read and write are two separate steps; the pair_key unique index
// settles concurrent creators, and the loser re-fetches the winning row.
func (s *chatServiceImpl) resolveRoom(ctx context.Context, userA, userB string) (*domain.ChatRoom, error) {
	room, err := s.rooms.FindByPair(ctx, userA, userB)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, repository.ErrRoomNotFound) {
		return nil, err
	}

	room = &domain.ChatRoom{
		ParticipantIDs: []string{userA, userB},
		CreatedAt:      time.Now(),
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrRoomExists) {
			// Lost the race; another request created the room first.
			return s.rooms.FindByPair(ctx, userA, userB)
		}
		return nil, err
	}
	return room, nil
}

// AddMessage resolves the pair's room (creating it on first contact) and
// appends an unread message, returning it with the sender denormalized.
func (s *chatServiceImpl) AddMessage(ctx context.Context, req *domain.AddMessageRequest) (*domain.Message, error) {
	l := log.Ctx(ctx)

	room, err := s.resolveRoom(ctx, req.SenderID, req.RecipientID)
	if err != nil {
		l.Error().Err(err).Msg("failed to resolve chat room")
		return nil, err
	}

	msg := &domain.Message{
		ChatRoomID: room.ID,
		SenderID:   req.SenderID,
		Content:    req.Content,
		IsRead:     false,
		CreatedAt:  time.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to create message")
		return nil, err
	}

	sender, err := s.senderByID(ctx, msg.SenderID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrSenderNotFound
		}
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to resolve message sender")
		return nil, err
	}
	msg.Sender = sender

	audit.Log(ctx, audit.ActionAddMessage, req.SenderID, "message added")
	return msg, nil
}

// EditMessage replaces the content of an existing message.
func (s *chatServiceImpl) EditMessage(ctx context.Context, messageID, content string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	if err := s.messages.UpdateContent(ctx, messageID, content); err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to edit message")
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to reload edited message")
		return nil, err
	}
	if sender, err := s.senderByID(ctx, msg.SenderID); err == nil {
		msg.Sender = sender
	}

	audit.Log(ctx, audit.ActionEditMessage, msg.SenderID, "message edited")
	return msg, nil
}

// DeleteMessage removes a message by id.
func (s *chatServiceImpl) DeleteMessage(ctx context.Context, messageID string) error {
	l := log.Ctx(ctx)

	if err := s.messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to delete message")
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionDeleteMessage, "", messageID, "message deleted")
	return nil
}

// MarkMessageAsRead flips the read flag once. Only the message's sender may
// flip it, and a second attempt fails: the flag never un-reads.
func (s *chatServiceImpl) MarkMessageAsRead(ctx context.Context, callerID, messageID string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to get message for mark-read")
		return nil, err
	}

	if msg.IsRead {
		return nil, ErrAlreadyRead
	}
	if msg.SenderID != callerID {
		return nil, ErrNotMessageSender
	}

	if err := s.messages.MarkRead(ctx, messageID); err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to mark message as read")
		return nil, err
	}
	msg.IsRead = true

	if sender, err := s.senderByID(ctx, msg.SenderID); err == nil {
		msg.Sender = sender
	}

	audit.LogWithDetail(ctx, audit.ActionMarkRead, callerID, messageID, "message marked as read")
	return msg, nil
}

// ListMessages returns a room's messages in insertion order with senders
// denormalized.
func (s *chatServiceImpl) ListMessages(ctx context.Context, roomID string) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	messages, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages")
		return nil, err
	}

	senderIDs := make([]string, 0, len(messages))
	seen := make(map[string]bool, len(messages))
	for i := range messages {
		if !seen[messages[i].SenderID] {
			seen[messages[i].SenderID] = true
			senderIDs = append(senderIDs, messages[i].SenderID)
		}
	}

	senders, err := s.usersByIDs(ctx, senderIDs)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to resolve message senders")
		return nil, err
	}

	for i := range messages {
		if sender, ok := senders[messages[i].SenderID]; ok {
			messages[i].Sender = sender
		}
	}
	return messages, nil
}

// ListRooms returns the rooms the caller participates in, with the
// participant users denormalized.
func (s *chatServiceImpl) ListRooms(ctx context.Context, callerID string) ([]domain.ChatRoom, error) {
	l := log.Ctx(ctx)

	rooms, err := s.rooms.ListByParticipant(ctx, callerID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, callerID).Msg("failed to list chat rooms")
		return nil, err
	}

	ids := make([]string, 0, len(rooms)*2)
	seen := make(map[string]bool)
	for i := range rooms {
		for _, id := range rooms[i].ParticipantIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	users, err := s.usersByIDs(ctx, ids)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, callerID).Msg("failed to resolve room participants")
		return nil, err
	}

	for i := range rooms {
		participants := make([]domain.UserResponse, 0, len(rooms[i].ParticipantIDs))
		for _, id := range rooms[i].ParticipantIDs {
			if u, ok := users[id]; ok {
				participants = append(participants, *u)
			}
		}
		rooms[i].Participants = participants
	}
	return rooms, nil
}

// senderByID loads a single user view, read-through the cache when present.
func (s *chatServiceImpl) senderByID(ctx context.Context, userID string) (*domain.UserResponse, error) {
	if s.userCache != nil {
		if cached, err := s.userCache.Get(ctx, s.userCache.BuildKeyByID(userID)); err == nil {
			resp := cached.ToResponse()
			return &resp, nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.userCache != nil {
		if err := s.userCache.Set(ctx, s.userCache.BuildKeyByID(userID), user, s.cacheTTL); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to cache user")
		}
	}

	resp := user.ToResponse()
	return &resp, nil
}

// usersByIDs batch-loads user views keyed by id.
func (s *chatServiceImpl) usersByIDs(ctx context.Context, ids []string) (map[string]*domain.UserResponse, error) {
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*domain.UserResponse, len(users))
	for i := range users {
		resp := users[i].ToResponse()
		out[users[i].ID] = &resp
	}
	return out, nil
}
