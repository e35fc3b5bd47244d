package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fikri221/linking-up/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.UserModel{},
		&domain.ChatRoomModel{},
		&domain.MessageModel{},
	))
	return db
}

func createTestUser(t *testing.T, repo *GormUserRepository, username, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hash-" + username,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestGormUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	user := createTestUser(t, repo, "alice", "alice@x.com")
	require.NotEmpty(t, user.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, "hash-alice", byID.PasswordHash)

	byEmail, err := repo.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestGormUserRepository_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	createTestUser(t, repo, "alice", "alice@x.com")

	err := repo.Create(ctx, &domain.User{
		Username:     "alice2",
		Email:        "alice@x.com",
		PasswordHash: "other",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestGormUserRepository_GetMissing(t *testing.T) {
	t.Parallel()

	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetByEmail(ctx, "nope@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGormUserRepository_ListExcept(t *testing.T) {
	t.Parallel()

	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	alice := createTestUser(t, repo, "alice", "alice@x.com")
	createTestUser(t, repo, "bob", "bob@x.com")
	createTestUser(t, repo, "carol", "carol@x.com")

	contacts, err := repo.ListExcept(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, u := range contacts {
		assert.NotEqual(t, alice.ID, u.ID)
	}
}

func TestGormUserRepository_GetByIDs(t *testing.T) {
	t.Parallel()

	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	alice := createTestUser(t, repo, "alice", "alice@x.com")
	bob := createTestUser(t, repo, "bob", "bob@x.com")

	users, err := repo.GetByIDs(ctx, []string{alice.ID, bob.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGormUserRepository_UpdatePassword(t *testing.T) {
	t.Parallel()

	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	alice := createTestUser(t, repo, "alice", "alice@x.com")

	require.NoError(t, repo.UpdatePassword(ctx, alice.ID, "new-hash"))

	reloaded, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x"), ErrUserNotFound)
}
