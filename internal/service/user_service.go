package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/fikri221/linking-up/internal/audit"
	"github.com/fikri221/linking-up/internal/cache"
	"github.com/fikri221/linking-up/internal/domain"
	"github.com/fikri221/linking-up/internal/repository"
	"github.com/fikri221/linking-up/pkg/jwt"
	"github.com/fikri221/linking-up/pkg/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("old password is not valid")
)

// userServiceImpl implements UserService.
type userServiceImpl struct {
	repo       repository.UserRepository
	userCache  cache.UserCache
	tokens     *jwt.Manager
	bcryptCost int
}

// NewUserService creates a new user service. cache may be nil, in which
// case all reads go straight to the repository.
func NewUserService(repo repository.UserRepository, userCache cache.UserCache, tokens *jwt.Manager, bcryptCost int) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userServiceImpl{
		repo:       repo,
		userCache:  userCache,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// SignUp registers a new user and issues a first session token.
func (s *userServiceImpl) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.SignUpResponse, error) {
	l := log.Ctx(ctx)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := &domain.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrEmailExists) {
			l.Error().Err(err).Msg("failed to create user")
		}
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID, user.Username, user.Email)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate token after signup")
		return nil, err
	}

	audit.Log(ctx, audit.ActionSignUp, user.ID, "user signed up")

	return &domain.SignUpResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	}, nil
}

// Login authenticates a user. Unknown email and wrong password produce the
// same error so callers cannot probe which emails exist.
func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.Email, "login failed: user not found")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get user by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, req.Email, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username, user.Email)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate token after login")
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")

	return &domain.LoginResponse{
		Username: user.Username,
		Token:    token,
	}, nil
}

// ChangePassword replaces the stored hash after verifying the old password.
// A wrong old password leaves the stored hash untouched.
func (s *userServiceImpl) ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get user for password change")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		audit.Log(ctx, audit.ActionChangePassword, userID, "password change rejected: old password mismatch")
		return nil, ErrWrongPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash new password")
		return nil, err
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to update password")
		return nil, err
	}

	if s.userCache != nil {
		if err := s.userCache.Delete(ctx, s.userCache.BuildKeyByID(userID)); err != nil {
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to invalidate user cache")
		}
	}

	audit.Log(ctx, audit.ActionChangePassword, userID, "password changed")

	resp := user.ToResponse()
	return &resp, nil
}

// ListContacts returns every user except the caller.
func (s *userServiceImpl) ListContacts(ctx context.Context, userID string) ([]domain.UserResponse, error) {
	l := log.Ctx(ctx)

	users, err := s.repo.ListExcept(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list contacts")
		return nil, err
	}

	contacts := make([]domain.UserResponse, len(users))
	for i := range users {
		contacts[i] = users[i].ToResponse()
	}
	return contacts, nil
}
