package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/follow-graph/internal/middleware"
	"github.com/anonto42/follow-graph/internal/models"
	"github.com/anonto42/follow-graph/internal/repositories"
	"github.com/anonto42/follow-graph/internal/services"
	"github.com/anonto42/follow-graph/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type stubFollowService struct {
	createErr, deleteErr error
	calls                []string
	lastAuthor           primitive.ObjectID

	following            bool
	followers, followees []models.UserCompact
	countErr             error
	removed              []primitive.ObjectID
}

func (s *stubFollowService) Create(ctx context.Context, username string, authorID primitive.ObjectID) error {
	s.calls = append(s.calls, "create:"+username)
	s.lastAuthor = authorID
	return s.createErr
}

func (s *stubFollowService) Delete(ctx context.Context, username string, authorID primitive.ObjectID) error {
	s.calls = append(s.calls, "delete:"+username)
	s.lastAuthor = authorID
	return s.deleteErr
}

func (s *stubFollowService) IsFollowing(ctx context.Context, targetID, visitorID primitive.ObjectID) (bool, error) {
	return s.following, nil
}

func (s *stubFollowService) GetFollowers(ctx context.Context, userID primitive.ObjectID) ([]models.UserCompact, error) {
	return s.followers, nil
}

func (s *stubFollowService) GetFollowing(ctx context.Context, userID primitive.ObjectID) ([]models.UserCompact, error) {
	return s.followees, nil
}

func (s *stubFollowService) CountFollowers(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return int64(len(s.followers)), s.countErr
}

func (s *stubFollowService) CountFollowing(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return int64(len(s.followees)), s.countErr
}

func (s *stubFollowService) RemoveUser(ctx context.Context, userID primitive.ObjectID) error {
	s.removed = append(s.removed, userID)
	return nil
}

type stubUsers struct {
	users map[string]*models.User
}

func (s *stubUsers) CreateUser(ctx context.Context, user *models.User) error {
	if _, ok := s.users[user.Username]; ok {
		return repositories.ErrUserExists
	}
	user.ID = primitive.NewObjectID()
	s.users[user.Username] = user
	return nil
}

func (s *stubUsers) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (s *stubUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (s *stubUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (s *stubUsers) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (s *stubUsers) UpdateUser(ctx context.Context, user *models.User) error {
	for name, u := range s.users {
		if u.ID == user.ID {
			if other, ok := s.users[user.Username]; ok && other.ID != user.ID {
				return repositories.ErrUserExists
			}
			delete(s.users, name)
			s.users[user.Username] = user
			return nil
		}
	}
	return repositories.ErrUserNotFound
}

func (s *stubUsers) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	for name, u := range s.users {
		if u.ID == id {
			delete(s.users, name)
			return nil
		}
	}
	return repositories.ErrUserNotFound
}

func (s *stubUsers) SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error) {
	var out []models.User
	for name, u := range s.users {
		if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *stubUsers) EnsureIndexes(ctx context.Context) error { return nil }

type stubNotifications struct {
	created []models.Notification
	read    map[uint]string
}

func (s *stubNotifications) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.created = append(s.created, *n)
	return nil
}

func (s *stubNotifications) GetByRecipientID(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	return s.created, int64(len(s.created)), nil
}

func (s *stubNotifications) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return int64(len(s.created)), nil
}

func (s *stubNotifications) GetGrouped(ctx context.Context, recipientID string, now time.Time) (*repositories.NotificationGroups, error) {
	return &repositories.NotificationGroups{
		Today:     s.created,
		Yesterday: []models.Notification{},
		ThisWeek:  []models.Notification{},
		Older:     []models.Notification{},
	}, nil
}

func (s *stubNotifications) MarkAsRead(ctx context.Context, recipientID string, notificationID uint) error {
	for _, n := range s.created {
		if n.ID == notificationID && n.RecipientID == recipientID {
			if s.read == nil {
				s.read = map[uint]string{}
			}
			s.read[notificationID] = recipientID
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

func (s *stubNotifications) MarkAllAsRead(ctx context.Context, recipientID string) error { return nil }

type testServer struct {
	e             *echo.Echo
	svc           *stubFollowService
	users         *stubUsers
	notifications *stubNotifications
	alice, bob    *models.User
	auth          *AuthHandler
}

func newTestServer() *testServer {
	ts := &testServer{
		svc:           &stubFollowService{},
		notifications: &stubNotifications{},
		alice:         &models.User{ID: primitive.NewObjectID(), Username: "alice", Email: "alice@example.com"},
		bob:           &models.User{ID: primitive.NewObjectID(), Username: "bob", Email: "bob@example.com"},
	}
	ts.users = &stubUsers{users: map[string]*models.User{"alice": ts.alice, "bob": ts.bob}}

	e := echo.New()
	e.Validator = validators.NewValidator()
	ts.auth = NewAuthHandler(ts.users, nil, testSecret)
	ts.auth.RegisterAuthRoutes(e.Group("/api/v1/auth"))

	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(testSecret))
	NewFollowHandler(ts.svc, ts.users, ts.notifications).RegisterFollowRoutes(api)
	NewProfileHandler(ts.users, ts.svc).RegisterProfileRoutes(api)
	NewNotificationHandler(ts.notifications, ts.users).RegisterNotificationRoutes(api)
	ts.e = e
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if as != nil {
		token, err := ts.auth.generateJWT(as)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func TestFollowHandler(t *testing.T) {
	testCases := []struct {
		name      string
		method    string
		body      string
		as        bool
		createErr error
		deleteErr error
		wantCode  int
		wantCalls []string
		wantBody  string
	}{
		{
			name:      "follow",
			method:    http.MethodPost,
			body:      `{"username":"bob"}`,
			as:        true,
			wantCode:  http.StatusOK,
			wantCalls: []string{"create:bob"},
			wantBody:  `{"success":true,"data":{"following":true}}`,
		},
		{
			name:      "unfollow",
			method:    http.MethodDelete,
			body:      `{"username":"bob"}`,
			as:        true,
			wantCode:  http.StatusOK,
			wantCalls: []string{"delete:bob"},
			wantBody:  `{"success":true,"data":{"following":false}}`,
		},
		{
			name:     "no token",
			method:   http.MethodPost,
			body:     `{"username":"bob"}`,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "non-string username",
			method:   http.MethodPost,
			body:     `{"username":42}`,
			as:       true,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing username",
			method:   http.MethodPost,
			body:     `{}`,
			as:       true,
			wantCode: http.StatusBadRequest,
		},
		{
			name:      "validation errors",
			method:    http.MethodPost,
			body:      `{"username":"bob"}`,
			as:        true,
			createErr: &services.ValidationError{Messages: []string{services.MsgAlreadyFollowing}},
			wantCode:  http.StatusBadRequest,
			wantCalls: []string{"create:bob"},
			wantBody:  `{"success":false,"errors":["You are already following this user."]}`,
		},
		{
			name:      "store failure",
			method:    http.MethodDelete,
			body:      `{"username":"bob"}`,
			as:        true,
			deleteErr: &services.QueryError{Op: "delete follow", Err: errors.New("socket closed")},
			wantCode:  http.StatusInternalServerError,
			wantCalls: []string{"delete:bob"},
			wantBody:  `{"message":"follow query failed"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer()
			ts.svc.createErr = tc.createErr
			ts.svc.deleteErr = tc.deleteErr

			var as *models.User
			if tc.as {
				as = ts.alice
			}
			rec := ts.do(t, tc.method, "/api/v1/follows", tc.body, as)

			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantCalls, ts.svc.calls)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, rec.Body.String())
			}
			if tc.wantCalls != nil {
				assert.Equal(t, ts.alice.ID, ts.svc.lastAuthor)
			}
		})
	}
}

func TestFollowHandler_Notification(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/follows", `{"username":"bob"}`, ts.alice)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ts.notifications.created, 1)
	n := ts.notifications.created[0]
	assert.Equal(t, models.NotificationTypeFollow, n.Type)
	assert.Equal(t, ts.alice.ID.Hex(), n.ActorID)
	assert.Equal(t, ts.bob.ID.Hex(), n.RecipientID)
	assert.Equal(t, "alice started following you", n.Message)

	// a rejected follow must not notify
	ts.svc.createErr = &services.ValidationError{Messages: []string{services.MsgAlreadyFollowing}}
	ts.do(t, http.MethodPost, "/api/v1/follows", `{"username":"bob"}`, ts.alice)
	assert.Len(t, ts.notifications.created, 1)
}

func TestProfileHandler(t *testing.T) {
	ts := newTestServer()
	ts.svc.following = true
	ts.svc.followers = []models.UserCompact{ts.alice.ToCompact()}

	rec := ts.do(t, http.MethodGet, "/api/v1/profile/bob", "", ts.alice)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                  `json:"success"`
		Data    models.ProfileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.ProfileSummary{
		Username:    "bob",
		Avatar:      ts.bob.Avatar(),
		IsFollowing: true,
		Counts:      models.FollowCounts{Followers: 1, Following: 0},
	}, resp.Data)

	rec = ts.do(t, http.MethodGet, "/api/v1/profile/alice", "", ts.alice)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.IsVisitorsProfile)
	assert.False(t, resp.Data.IsFollowing)

	rec = ts.do(t, http.MethodGet, "/api/v1/profile/nobody", "", ts.alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileHandler_Followers(t *testing.T) {
	ts := newTestServer()
	ts.svc.followers = []models.UserCompact{ts.alice.ToCompact()}

	rec := ts.do(t, http.MethodGet, "/api/v1/profile/bob/followers", "", ts.alice)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Followers []models.UserCompact `json:"followers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []models.UserCompact{{Username: "alice", Avatar: models.AvatarFor("alice@example.com")}}, resp.Data.Followers)

	ts.svc.countErr = &services.QueryError{Op: "count followers", Err: errors.New("timeout")}
	rec = ts.do(t, http.MethodGet, "/api/v1/profile/bob/following", "", ts.alice)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthHandler_SignupAndSignin(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"carol","email":"Carol@Example.com","password":"password123"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "carol@example.com", ts.users.users["carol"].Email)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"username":"carol","email":"carol2@example.com","password":"password123"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/signin", `{"username":"carol","password":"password123"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/signin", `{"username":"carol","password":"wrong-password"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"x"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
