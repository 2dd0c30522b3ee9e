package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alegjs044/Gecko-house-sub000/internal/auth"
	"github.com/alegjs044/Gecko-house-sub000/internal/data"
	"github.com/alegjs044/Gecko-house-sub000/internal/realtime"
)

type fakeUserStore struct {
	userID   int
	hash     string
	history  []data.Reading
	histErr  error
	credsErr error
	gotLimit int
	gotKind  data.SensorKind
}

func (s *fakeUserStore) Credentials(_ context.Context, _ string) (int, string, error) {
	return s.userID, s.hash, s.credsErr
}

func (s *fakeUserStore) History(_ context.Context, kind data.SensorKind, _ int, limit int) ([]data.Reading, error) {
	s.gotKind = kind
	s.gotLimit = limit
	return s.history, s.histErr
}

func newTestServer(t *testing.T, store *fakeUserStore) (*httptest.Server, *auth.Manager, *realtime.Hub) {
	t.Helper()
	log := zaptest.NewLogger(t)
	authManager := auth.NewManager("test-secret", 60)
	hub := realtime.NewHub(time.Minute, time.Minute, log)
	handler := NewHandler(store, hub, authManager, 100, log)
	srv := httptest.NewServer(SetupRouter(handler, authManager))
	t.Cleanup(srv.Close)
	return srv, authManager, hub
}

func TestLoginIssuesToken(t *testing.T) {
	hash, err := auth.HashPassword("gecko123")
	require.NoError(t, err)
	store := &fakeUserStore{userID: 7, hash: hash}
	srv, authManager, _ := newTestServer(t, store)

	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"usuario":"ale","contrasena":"gecko123"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token  string `json:"token"`
		UserID int    `json:"user_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7, body.UserID)

	claims, err := authManager.ValidateToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	hash, err := auth.HashPassword("gecko123")
	require.NoError(t, err)
	srv, _, _ := newTestServer(t, &fakeUserStore{userID: 7, hash: hash})

	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"usuario":"ale","contrasena":"wrong"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeUserStore{credsErr: errors.New("no such user")})

	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"usuario":"nadie","contrasena":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func historyRequest(t *testing.T, srv *httptest.Server, token, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHistoryRequiresAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeUserStore{})
	resp := historyRequest(t, srv, "", "/api/historial/humedad")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHistoryReturnsReadings(t *testing.T) {
	store := &fakeUserStore{
		history: []data.Reading{{Kind: data.KindHumidity, Value: 45, UserID: 7}},
	}
	srv, authManager, _ := newTestServer(t, store)
	token, err := authManager.GenerateToken(7)
	require.NoError(t, err)

	resp := historyRequest(t, srv, token, "/api/historial/humedad?limit=10")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var readings []data.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&readings))
	require.Len(t, readings, 1)
	assert.Equal(t, 45.0, readings[0].Value)
	assert.Equal(t, data.KindHumidity, store.gotKind)
	assert.Equal(t, 10, store.gotLimit, "limit query narrows the cap")
}

func TestHistoryUnknownKind(t *testing.T) {
	srv, authManager, _ := newTestServer(t, &fakeUserStore{})
	token, err := authManager.GenerateToken(7)
	require.NoError(t, err)

	resp := historyRequest(t, srv, token, "/api/historial/presion")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketHandshake(t *testing.T) {
	srv, authManager, hub := newTestServer(t, &fakeUserStore{})
	token, err := authManager.GenerateToken(7)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration confirms the session to the new connection.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, data.EventUserConfirmed, msg.Type)
	assert.True(t, hub.Presence().IsActive(7))
}

func TestWebSocketHandshakeRejectsBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeUserStore{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
