package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fikri221/linking-up/internal/domain"
	"github.com/fikri221/linking-up/pkg/log"
)

// GormChatRoomRepository implements ChatRoomRepository using GORM.
type GormChatRoomRepository struct {
	db *gorm.DB
}

// NewGormChatRoomRepository creates a new GORM-based chat room repository.
func NewGormChatRoomRepository(db *gorm.DB) *GormChatRoomRepository {
	return &GormChatRoomRepository{db: db}
}

// Create inserts a new room. The pair_key unique index rejects a second
// room for the same participant pair; that case surfaces as ErrRoomExists
// so the resolver can re-fetch the winning row.
func (r *GormChatRoomRepository) Create(ctx context.Context, room *domain.ChatRoom) error {
	l := log.Ctx(ctx)

	room.ID = uuid.New().String()

	model := domain.ChatRoomToModel(room)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrRoomExists
		}
		l.Error().Err(result.Error).Msg("failed to create chat room in db")
		return result.Error
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.ID).Msg("chat room created in db")
	return nil
}

// GetByID retrieves a room by ID.
func (r *GormChatRoomRepository) GetByID(ctx context.Context, id string) (*domain.ChatRoom, error) {
	var model domain.ChatRoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// FindByPair locates the room shared by an unordered participant pair.
// The lookup goes through the normalized pair key, so argument order
// does not matter.
func (r *GormChatRoomRepository) FindByPair(ctx context.Context, userA, userB string) (*domain.ChatRoom, error) {
	var model domain.ChatRoomModel
	result := r.db.WithContext(ctx).First(&model, "pair_key = ?", domain.RoomPairKey(userA, userB))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByParticipant retrieves rooms the given user belongs to.
func (r *GormChatRoomRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.ChatRoom, error) {
	l := log.Ctx(ctx)

	// Participant ids are stored as a JSON array in a text column; the
	// pair key carries the same ids in sorted order, so a LIKE match on
	// it finds every room the user is in without a join table.
	pattern := "%" + userID + "%"
	var models []domain.ChatRoomModel
	result := r.db.WithContext(ctx).
		Where("pair_key LIKE ?", pattern).
		Order("created_at ASC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to list chat rooms from db")
		return nil, result.Error
	}

	rooms := make([]domain.ChatRoom, 0, len(models))
	for _, model := range models {
		room := model.ToDomain()
		// LIKE can overmatch if one id is a substring of another; keep
		// only rooms that really contain the user.
		if room.HasParticipant(userID) {
			rooms = append(rooms, *room)
		}
	}
	return rooms, nil
}

// isUniqueViolation reports whether err is a unique-index violation in any
// of the supported databases.
func isUniqueViolation(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry")
}
