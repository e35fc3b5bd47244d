package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fikri221/linking-up/internal/domain"
	"github.com/fikri221/linking-up/internal/repository"
	"github.com/fikri221/linking-up/internal/service"
	"github.com/fikri221/linking-up/pkg/jwt"
	"github.com/fikri221/linking-up/pkg/middleware"
)

type testServer struct {
	router *gin.Engine
	tokens *jwt.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.UserModel{},
		&domain.ChatRoomModel{},
		&domain.MessageModel{},
	))

	tokens := jwt.NewManager("test-secret", time.Minute, "test")

	userRepo := repository.NewGormUserRepository(db)
	roomRepo := repository.NewGormChatRoomRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	userService := service.NewUserService(userRepo, nil, tokens, bcrypt.MinCost)
	chatService := service.NewChatService(messageRepo, roomRepo, userRepo, nil, time.Minute)

	h := NewHandler(userService, chatService, middleware.NewAuthMiddleware(tokens))

	r := gin.New()
	h.RegisterRoutes(r)

	return &testServer{router: r, tokens: tokens}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func (ts *testServer) signUp(t *testing.T, username, email, password string) domain.SignUpResponse {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", domain.SignUpRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp domain.SignUpResponse
	decodeData(t, w, &resp)
	return resp
}

func TestSignUp_DuplicateEmailConflict(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp := ts.signUp(t, "alice", "alice@x.com", "pw1")
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, resp.Token)

	w := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", domain.SignUpRequest{
		Username: "imposter",
		Email:    "alice@x.com",
		Password: "pw2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.signUp(t, "alice", "alice@x.com", "pw1")

	w := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Email:    "alice@x.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Email:    "alice@x.com",
		Password: "pw1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp domain.LoginResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "alice", resp.Username)

	claims, err := ts.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestProtectedRoutes_RejectWithoutValidToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	// No header at all.
	w := ts.do(t, http.MethodGet, "/api/v1/contacts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token.
	w = ts.do(t, http.MethodGet, "/api/v1/contacts", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Header without the bearer scheme.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	req.Header.Set(middleware.AuthHeaderKey, "Token abc")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddMessage_FindOrCreateRoom(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	alice := ts.signUp(t, "alice", "alice@x.com", "pw1")
	bob := ts.signUp(t, "bob", "bob@x.com", "pw2")

	w := ts.do(t, http.MethodPost, "/api/v1/messages", alice.Token, domain.AddMessageRequest{
		SenderID:    alice.ID,
		RecipientID: bob.ID,
		Content:     "hi",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var first domain.Message
	decodeData(t, w, &first)
	assert.False(t, first.IsRead)
	require.NotNil(t, first.Sender)
	assert.Equal(t, "alice", first.Sender.Username)

	// The reply from bob lands in the same room.
	w = ts.do(t, http.MethodPost, "/api/v1/messages", bob.Token, domain.AddMessageRequest{
		SenderID:    bob.ID,
		RecipientID: alice.ID,
		Content:     "hey",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var second domain.Message
	decodeData(t, w, &second)
	assert.Equal(t, first.ChatRoomID, second.ChatRoomID)

	// Listing the room returns both, in order, senders attached.
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chat-rooms/%s/messages", first.ChatRoomID), alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []domain.Message
	decodeData(t, w, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "hey", messages[1].Content)

	// And the room shows up for both participants.
	w = ts.do(t, http.MethodGet, "/api/v1/chat-rooms", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []domain.ChatRoom
	decodeData(t, w, &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, first.ChatRoomID, rooms[0].ID)
	assert.Len(t, rooms[0].Participants, 2)
}

func TestMarkMessageAsRead_OwnershipAndMonotonicity(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	alice := ts.signUp(t, "alice", "alice@x.com", "pw1")
	bob := ts.signUp(t, "bob", "bob@x.com", "pw2")

	w := ts.do(t, http.MethodPost, "/api/v1/messages", alice.Token, domain.AddMessageRequest{
		SenderID:    alice.ID,
		RecipientID: bob.ID,
		Content:     "hi",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var msg domain.Message
	decodeData(t, w, &msg)

	readPath := fmt.Sprintf("/api/v1/messages/%s/read", msg.ID)

	// A different authenticated user may not flip the flag.
	w = ts.do(t, http.MethodPost, readPath, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The sender succeeds once.
	w = ts.do(t, http.MethodPost, readPath, alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var read domain.Message
	decodeData(t, w, &read)
	assert.True(t, read.IsRead)

	// Retry fails: the flag never un-reads.
	w = ts.do(t, http.MethodPost, readPath, alice.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown message.
	w = ts.do(t, http.MethodPost, "/api/v1/messages/missing/read", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditAndDeleteMessage(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	alice := ts.signUp(t, "alice", "alice@x.com", "pw1")
	bob := ts.signUp(t, "bob", "bob@x.com", "pw2")

	w := ts.do(t, http.MethodPost, "/api/v1/messages", alice.Token, domain.AddMessageRequest{
		SenderID:    alice.ID,
		RecipientID: bob.ID,
		Content:     "typo",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var msg domain.Message
	decodeData(t, w, &msg)

	w = ts.do(t, http.MethodPut, "/api/v1/messages/"+msg.ID, alice.Token, domain.EditMessageRequest{
		Content: "fixed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var edited domain.Message
	decodeData(t, w, &edited)
	assert.Equal(t, "fixed", edited.Content)

	w = ts.do(t, http.MethodDelete, "/api/v1/messages/"+msg.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Deleting again: nothing left to delete.
	w = ts.do(t, http.MethodDelete, "/api/v1/messages/"+msg.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/api/v1/messages/"+msg.ID, alice.Token, domain.EditMessageRequest{
		Content: "ghost",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	alice := ts.signUp(t, "alice", "alice@x.com", "pw1")

	// Wrong old password: forbidden, stored hash unchanged.
	w := ts.do(t, http.MethodPut, "/api/v1/users/me/password", alice.Token, domain.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "pw2new",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Email:    "alice@x.com",
		Password: "pw1",
	})
	assert.Equal(t, http.StatusOK, w.Code, "old password must still work after a rejected change")

	// Correct old password.
	w = ts.do(t, http.MethodPut, "/api/v1/users/me/password", alice.Token, domain.ChangePasswordRequest{
		OldPassword: "pw1",
		NewPassword: "pw2new",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Email:    "alice@x.com",
		Password: "pw2new",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListContacts(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	alice := ts.signUp(t, "alice", "alice@x.com", "pw1")
	ts.signUp(t, "bob", "bob@x.com", "pw2")
	ts.signUp(t, "carol", "carol@x.com", "pw3")

	w := ts.do(t, http.MethodGet, "/api/v1/contacts", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var contacts []domain.UserResponse
	decodeData(t, w, &contacts)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.NotEqual(t, alice.ID, c.ID)
	}
}
