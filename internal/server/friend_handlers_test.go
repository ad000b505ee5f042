package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"habitpal/internal/config"
	"habitpal/internal/models"
	"habitpal/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	app  *fiber.App
	db   *gorm.DB
	a, b *models.Account
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		Env:              "test",
		Port:             "0",
		AllowedOrigins:   "*",
		JWTSecret:        testSecret,
		JWTIssuer:        "habitpal-auth",
		JWTAudience:      "habitpal-app",
		PresenceWindow:   5 * time.Minute,
		OperationTimeout: 5 * time.Second,
	}
	s := NewServerWithDeps(cfg, db, nil)
	return &testEnv{
		app: s.NewApp(),
		db:  db,
		a:   testutil.CreateAccount(t, db, "AAA111", "Ann"),
		b:   testutil.CreateAccount(t, db, "BBB222", "Bob"),
	}
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    "habitpal-auth",
		Audience:  jwt.ClaimStrings{"habitpal-app"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

// do sends a request as user and decodes the JSON response into out when set.
func (e *testEnv) do(t *testing.T, user *models.Account, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, user.ID))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestFriendRoutes_RequireAuth(t *testing.T) {
	e := newTestEnv(t)
	var body models.ErrorResponse
	status := e.do(t, nil, http.MethodGet, "/api/friends", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, body.Success)
}

func TestFriendLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	var search models.UserSearchResult
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodGet, "/api/friends/search/BBB222", nil, &search))
	assert.Equal(t, e.b.ID, search.UserID)
	assert.True(t, search.CanSendRequest)

	var ok map[string]any
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodPost, "/api/friends/request",
		SendFriendRequestInput{UID: "BBB222", Message: "hi"}, &ok))
	assert.Equal(t, true, ok["success"])

	var errBody models.ErrorResponse
	assert.Equal(t, http.StatusConflict, e.do(t, e.a, http.MethodPost, "/api/friends/request",
		SendFriendRequestInput{UID: "BBB222"}, &errBody))
	assert.Equal(t, models.CodeAlreadyPending, errBody.Code)

	var received []models.RequestView
	require.Equal(t, http.StatusOK, e.do(t, e.b, http.MethodGet, "/api/friends/requests?type=received", nil, &received))
	require.Len(t, received, 1)
	assert.Equal(t, "hi", received[0].Message)

	var sent []models.RequestView
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodGet, "/api/friends/requests?type=sent", nil, &sent))
	require.Len(t, sent, 1)

	var handled map[string]any
	require.Equal(t, http.StatusOK, e.do(t, e.b, http.MethodPost,
		fmt.Sprintf("/api/friends/requests/%d/handle", received[0].ID),
		HandleFriendRequestInput{Action: "accept"}, &handled))
	assert.Equal(t, "Friend request accepted", handled["message"])

	var friends []models.FriendView
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodGet, "/api/friends", nil, &friends))
	require.Len(t, friends, 1)
	require.NotNil(t, friends[0].ConversationRef)

	starred := true
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodPatch,
		fmt.Sprintf("/api/friends/%d/settings", e.b.ID), models.FriendSettingsPatch{IsStarred: &starred}, nil))

	var count map[string]float64
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodGet, "/api/friends/notifications/unread-count", nil, &count))
	assert.Equal(t, float64(1), count["count"])

	var notes []models.NotificationView
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodGet, "/api/friends/notifications?limit=5", nil, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationAccepted, notes[0].Type)

	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodPatch,
		fmt.Sprintf("/api/friends/notifications/%d/read", notes[0].ID), nil, nil))
	require.Equal(t, http.StatusOK, e.do(t, e.b, http.MethodPost, "/api/friends/notifications/read-all", nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodDelete, fmt.Sprintf("/api/friends/%d", e.b.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, e.a, http.MethodDelete, fmt.Sprintf("/api/friends/%d", e.b.ID), nil, nil))

	friends = nil
	require.Equal(t, http.StatusOK, e.do(t, e.b, http.MethodGet, "/api/friends", nil, &friends))
	assert.Empty(t, friends)
}

func TestFriendRoutes_ErrorMapping(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		user   *models.Account
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"self request", e.a, http.MethodPost, "/api/friends/request", SendFriendRequestInput{UID: "AAA111"}, http.StatusBadRequest, models.CodeSelfReference},
		{"unknown uid", e.a, http.MethodPost, "/api/friends/request", SendFriendRequestInput{UID: "NOPE00"}, http.StatusNotFound, models.CodeNotFound},
		{"missing uid", e.a, http.MethodPost, "/api/friends/request", SendFriendRequestInput{}, http.StatusBadRequest, models.CodeValidation},
		{"bad direction", e.a, http.MethodGet, "/api/friends/requests?type=both", nil, http.StatusBadRequest, models.CodeValidation},
		{"bad action", e.b, http.MethodPost, "/api/friends/requests/1/handle", HandleFriendRequestInput{Action: "maybe"}, http.StatusBadRequest, models.CodeValidation},
		{"unknown request", e.b, http.MethodPost, "/api/friends/requests/999/handle", HandleFriendRequestInput{Action: "accept"}, http.StatusNotFound, models.CodeNotFound},
		{"bad id", e.b, http.MethodDelete, "/api/friends/requests/abc", nil, http.StatusBadRequest, models.CodeValidation},
		{"remove stranger", e.a, http.MethodDelete, "/api/friends/2", nil, http.StatusNotFound, models.CodeNotFound},
		{"search self", e.a, http.MethodGet, "/api/friends/search/AAA111", nil, http.StatusBadRequest, models.CodeSelfReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body models.ErrorResponse
			assert.Equal(t, tt.status, e.do(t, tt.user, tt.method, tt.path, tt.body, &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestBlockAndCancelRoutes(t *testing.T) {
	e := newTestEnv(t)

	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodPost, "/api/friends/request", SendFriendRequestInput{UID: "BBB222"}, nil))
	var sent []models.RequestView
	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodGet, "/api/friends/requests?type=sent", nil, &sent))
	require.Len(t, sent, 1)

	require.Equal(t, http.StatusOK, e.do(t, e.a, http.MethodDelete, fmt.Sprintf("/api/friends/requests/%d", sent[0].ID), nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, e.b, http.MethodPost, fmt.Sprintf("/api/friends/%d/block", e.a.ID), nil, nil))
	var body models.ErrorResponse
	assert.Equal(t, http.StatusConflict, e.do(t, e.a, http.MethodPost, "/api/friends/request", SendFriendRequestInput{UID: "BBB222"}, &body))
	assert.Equal(t, models.CodeCannotSend, body.Code)
}

func TestHealthRoutes(t *testing.T) {
	e := newTestEnv(t)

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ready map[string]any
	assert.Equal(t, http.StatusOK, e.do(t, nil, http.MethodGet, "/health/ready", nil, &ready))
	assert.Equal(t, "healthy", ready["status"])
	checks := ready["checks"].(map[string]any)
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestWebSocketRoute_RejectsPlainHTTP(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/ws?token="+tokenFor(t, e.a.ID), nil)
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	resp, err = e.app.Test(httptest.NewRequest(http.MethodGet, "/api/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
