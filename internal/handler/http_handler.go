package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/fikri221/linking-up/internal/domain"
	"github.com/fikri221/linking-up/internal/repository"
	"github.com/fikri221/linking-up/internal/service"
	"github.com/fikri221/linking-up/pkg/log"
	"github.com/fikri221/linking-up/pkg/middleware"
	"github.com/fikri221/linking-up/pkg/response"
)

// Handler handles HTTP requests.
type Handler struct {
	userService    service.UserService
	chatService    service.ChatService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(userService service.UserService, chatService service.ChatService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		userService:    userService,
		chatService:    chatService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes. Signup and login stay outside the
// auth gate; everything else requires a valid bearer token.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.SignUp)
			auth.POST("/login", h.Login)
		}

		protected := api.Group("")
		protected.Use(h.authMiddleware.RequireAuth())
		{
			protected.GET("/contacts", h.ListContacts)
			protected.GET("/chat-rooms", h.ListRooms)
			protected.GET("/chat-rooms/:room_id/messages", h.ListMessages)
			protected.POST("/messages", h.AddMessage)
			protected.PUT("/messages/:message_id", h.EditMessage)
			protected.DELETE("/messages/:message_id", h.DeleteMessage)
			protected.POST("/messages/:message_id/read", h.MarkMessageAsRead)
			protected.PUT("/users/me/password", h.ChangePassword)
		}
	}
}

// SignUp handles user registration.
func (h *Handler) SignUp(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid signup request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.userService.SignUp(ctx, &req)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			response.Conflict(c, "email already exists")
			return
		}
		l.Error().Err(err).Msg("signup failed")
		response.InternalError(c, "failed to sign up")
		return
	}

	response.Created(c, result)
}

// Login handles user login.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.userService.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to login")
		return
	}

	response.Success(c, result)
}

// ChangePassword changes the caller's password.
func (h *Handler) ChangePassword(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	var req domain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid change password request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.ChangePassword(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrWrongPassword) {
			response.Forbidden(c, "Old password is not valid")
			return
		}
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("change password failed")
		response.InternalError(c, "failed to change password")
		return
	}

	response.Success(c, user)
}

// ListContacts returns all users except the caller.
func (h *Handler) ListContacts(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	contacts, err := h.userService.ListContacts(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("list contacts failed")
		response.InternalError(c, "failed to list contacts")
		return
	}

	response.Success(c, contacts)
}

// ListRooms returns the caller's chat rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	rooms, err := h.chatService.ListRooms(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("list chat rooms failed")
		response.InternalError(c, "failed to list chat rooms")
		return
	}

	response.Success(c, rooms)
}

// ListMessages returns all messages in a room.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	roomID := c.Param("room_id")

	messages, err := h.chatService.ListMessages(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("list messages failed")
		response.InternalError(c, "failed to list messages")
		return
	}

	response.Success(c, messages)
}

// AddMessage sends a message, creating the pair's room on first contact.
func (h *Handler) AddMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid add message request")
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.chatService.AddMessage(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrSenderNotFound) {
			response.NotFound(c, "sender not found")
			return
		}
		l.Error().Err(err).Msg("add message failed")
		response.InternalError(c, "failed to add message")
		return
	}

	response.Created(c, msg)
}

// EditMessage replaces a message's content.
func (h *Handler) EditMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	messageID := c.Param("message_id")

	var req domain.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid edit message request")
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.chatService.EditMessage(ctx, messageID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			response.NotFound(c, "message not found")
			return
		}
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("edit message failed")
		response.InternalError(c, "failed to edit message")
		return
	}

	response.Success(c, msg)
}

// DeleteMessage removes a message.
func (h *Handler) DeleteMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	messageID := c.Param("message_id")

	if err := h.chatService.DeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			response.NotFound(c, "message not found")
			return
		}
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("delete message failed")
		response.InternalError(c, "failed to delete message")
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// MarkMessageAsRead flips a message's read flag.
func (h *Handler) MarkMessageAsRead(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	messageID := c.Param("message_id")
	userID := middleware.GetUserID(c)

	msg, err := h.chatService.MarkMessageAsRead(ctx, userID, messageID)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			response.NotFound(c, "message not found")
			return
		}
		if errors.Is(err, service.ErrAlreadyRead) {
			response.Conflict(c, "message already marked as read")
			return
		}
		if errors.Is(err, service.ErrNotMessageSender) {
			response.Forbidden(c, "only the sender may mark this message as read")
			return
		}
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("mark message as read failed")
		response.InternalError(c, "failed to mark message as read")
		return
	}

	response.Success(c, msg)
}
