package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-tracker/internal/api/http/handlers"
	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	policy, err := auth.NewPolicy()
	require.NoError(t, err)
	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:             "router-test-secret",
		Issuer:                "ticket-tracker",
		Audience:              "ticket-tracker-api",
		AccessTokenTTLMinutes: 15,
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	denylist := auth.NewRedisDenylist(client)

	authService, err := service.NewAuthService(service.AuthDependencies{
		Store:    store,
		Hasher:   hasher,
		Tokens:   tokens,
		Denylist: denylist,
		Logger:   logger,
	})
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	app := NewServer("ticket-tracker-test", logger, metrics, 0, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-tracker", "test", metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(service.NewUserService(store, hasher, logger)),
		Tickets:        handlers.NewTicketsHandler(service.NewTicketService(store, policy, logger)),
		Comments:       handlers.NewCommentsHandler(service.NewCommentService(store, policy, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, denylist, logger),
		Policy:         policy,
	})
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out apiResponse
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, name, email, role string) string {
	t.Helper()
	status, resp := s.do(t, "POST", "/users", "", map[string]string{
		"name": name, "email": email, "password": "secret-pw", "role": role,
	})
	require.Equal(t, fiber.StatusCreated, status)
	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	return user.ID
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, resp := s.do(t, "POST", "/auth/login", "", map[string]string{"email": email, "password": "secret-pw"})
	require.Equal(t, fiber.StatusOK, status)
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

type userRefJSON struct {
	ID string `json:"id"`
}

type ticketJSON struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	Priority   string       `json:"priority"`
	CreatedBy  userRefJSON  `json:"created_by"`
	AssignedTo *userRefJSON `json:"assigned_to"`
}

func TestTicketWorkflow(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "Ada", "ada@example.com", "")
	supportID := s.register(t, "Sam", "sam@example.com", "SUPPORT")
	s.register(t, "Max", "max@example.com", "MANAGER")

	userToken := s.login(t, "ada@example.com")
	supportToken := s.login(t, "sam@example.com")
	managerToken := s.login(t, "max@example.com")

	newTicket := map[string]string{"title": "Printer jammed", "description": "Tray two keeps jamming"}

	status, resp := s.do(t, "POST", "/tickets", supportToken, newTicket)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	status, resp = s.do(t, "POST", "/tickets", userToken, newTicket)
	require.Equal(t, fiber.StatusCreated, status)
	ticket := decode[ticketJSON](t, resp)
	assert.Equal(t, "OPEN", ticket.Status)
	assert.Equal(t, "LOW", ticket.Priority)
	assert.Equal(t, userID, ticket.CreatedBy.ID)
	assert.Nil(t, ticket.AssignedTo)

	status, _ = s.do(t, "PATCH", "/tickets/"+ticket.ID+"/status", userToken, map[string]string{"status": "CLOSED"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp = s.do(t, "PATCH", "/tickets/"+ticket.ID+"/status", supportToken, map[string]string{"status": "IN_PROGRESS"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "IN_PROGRESS", decode[ticketJSON](t, resp).Status)

	status, resp = s.do(t, "PATCH", "/tickets/"+ticket.ID+"/status", supportToken, map[string]string{"status": "ARCHIVED"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)

	status, resp = s.do(t, "GET", "/tickets/"+ticket.ID+"/history", managerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	history := decode[[]struct {
		OldStatus string `json:"old_status"`
		NewStatus string `json:"new_status"`
		ChangedBy string `json:"changed_by"`
	}](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, "OPEN", history[0].OldStatus)
	assert.Equal(t, "IN_PROGRESS", history[0].NewStatus)
	assert.Equal(t, supportID, history[0].ChangedBy)

	status, _ = s.do(t, "GET", "/tickets/"+ticket.ID+"/history", userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp = s.do(t, "PATCH", "/tickets/"+ticket.ID+"/assign", supportToken, map[string]string{"user_id": "ghost"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)

	status, resp = s.do(t, "PATCH", "/tickets/"+ticket.ID+"/assign", supportToken, map[string]string{"user_id": supportID})
	require.Equal(t, fiber.StatusOK, status)
	assigned := decode[ticketJSON](t, resp)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, supportID, assigned.AssignedTo.ID)

	status, resp = s.do(t, "GET", "/tickets", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]ticketJSON](t, resp), 1)

	status, _ = s.do(t, "DELETE", "/tickets/"+ticket.ID, supportToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, "DELETE", "/tickets/"+ticket.ID, managerToken, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, resp = s.do(t, "DELETE", "/tickets/"+ticket.ID, managerToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestCommentOwnership(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ada", "ada@example.com", "USER")
	s.register(t, "Sam", "sam@example.com", "SUPPORT")
	s.register(t, "Max", "max@example.com", "MANAGER")
	userToken := s.login(t, "ada@example.com")
	supportToken := s.login(t, "sam@example.com")
	managerToken := s.login(t, "max@example.com")

	_, resp := s.do(t, "POST", "/tickets", userToken, map[string]string{
		"title": "Cannot log in", "description": "Password reset loops", "priority": "HIGH",
	})
	ticket := decode[ticketJSON](t, resp)
	assert.Equal(t, "HIGH", ticket.Priority)

	status, resp := s.do(t, "POST", "/tickets/"+ticket.ID+"/comments", userToken, map[string]string{"comment": "any news?"})
	require.Equal(t, fiber.StatusCreated, status)
	comment := decode[struct {
		ID      string `json:"id"`
		Comment string `json:"comment"`
	}](t, resp)

	status, _ = s.do(t, "POST", "/tickets/"+ticket.ID+"/comments", userToken, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "POST", "/tickets/missing/comments", userToken, map[string]string{"comment": "hello"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, "PATCH", "/comments/"+comment.ID, supportToken, map[string]string{"comment": "edited by support"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp = s.do(t, "PATCH", "/comments/"+comment.ID, managerToken, map[string]string{"comment": "moderated"})
	require.Equal(t, fiber.StatusOK, status)

	status, resp = s.do(t, "GET", "/tickets/"+ticket.ID+"/comments", supportToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	thread := decode[[]struct {
		Comment string `json:"comment"`
	}](t, resp)
	require.Len(t, thread, 1)
	assert.Equal(t, "moderated", thread[0].Comment)

	status, _ = s.do(t, "DELETE", "/comments/"+comment.ID, supportToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, "DELETE", "/comments/"+comment.ID, userToken, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ada", "ada@example.com", "")

	status, resp := s.do(t, "POST", "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	wrongPassword := resp.Error.Message

	_, resp = s.do(t, "POST", "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "secret-pw"})
	assert.Equal(t, wrongPassword, resp.Error.Message)

	status, _ = s.do(t, "GET", "/tickets", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, "GET", "/tickets", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	token := s.login(t, "ada@example.com")
	status, _ = s.do(t, "GET", "/tickets", token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, resp = s.do(t, "GET", "/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "USER", decode[struct {
		Role string `json:"role"`
	}](t, resp).Role)

	status, _ = s.do(t, "POST", "/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, resp = s.do(t, "GET", "/tickets", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestUserDirectory(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ada", "ada@example.com", "")
	s.register(t, "Max", "max@example.com", "MANAGER")

	status, resp := s.do(t, "POST", "/users", "", map[string]string{
		"name": "Copy", "email": "ada@example.com", "password": "secret-pw",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", resp.Error.Code)

	status, resp = s.do(t, "POST", "/users", "", map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": "secret-pw", "role": "ADMIN",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp = s.do(t, "POST", "/users", "", map[string]string{"email": "bad"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, resp.Error.Details, "email")
	assert.Contains(t, resp.Error.Details, "password")

	status, _ = s.do(t, "GET", "/users", s.login(t, "ada@example.com"), nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp = s.do(t, "GET", "/users", s.login(t, "max@example.com"), nil)
	require.Equal(t, fiber.StatusOK, status)
	users := decode[[]struct {
		Email        string `json:"email"`
		PasswordHash string `json:"password_hash"`
	}](t, resp)
	require.Len(t, users, 2)
	assert.Equal(t, "ada@example.com", users[0].Email)
	assert.Empty(t, users[0].PasswordHash)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, "GET", "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, resp := s.do(t, "GET", "/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	status, resp = s.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	snap := decode[observability.Snapshot](t, resp)
	assert.NotEmpty(t, snap.Requests)
}
