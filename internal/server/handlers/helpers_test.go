package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/server/changefeed"
	"github.com/iudanet/repsync/internal/server/realtime"
	"github.com/iudanet/repsync/internal/server/storage"
	"github.com/iudanet/repsync/internal/server/storage/sqlite"
	"github.com/iudanet/repsync/internal/server/ticket"
)

// setupTestLogger создает logger для тестов
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type testServer struct {
	*httptest.Server
	feed    *changefeed.Hub
	hub     *realtime.Hub
	tickets *ticket.Service
}

// setupTestServer поднимает API поверх sqlite во временной директории.
// store == nil означает настоящее хранилище.
func setupTestServer(t *testing.T, store storage.EntityStorage, types ...string) *testServer {
	t.Helper()

	var ping PingFunc
	if store == nil {
		s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "server.db"))
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.Close()
		})
		store = s
		ping = s.Ping
	}

	logger := setupTestLogger()
	ts := &testServer{
		feed:    changefeed.NewHub(logger),
		hub:     realtime.NewHub(logger),
		tickets: ticket.NewService(ticket.Config{Secret: []byte("test-secret-key"), TTL: time.Hour}, nil),
	}

	ts.Server = httptest.NewServer(NewRouter(RouterDeps{
		Logger:  logger,
		Store:   store,
		Ping:    ping,
		Feed:    ts.feed,
		Hub:     ts.hub,
		Tickets: ts.tickets,
		Types:   NewEntityTypes(types),
	}))
	t.Cleanup(func() {
		ts.hub.Shutdown()
		ts.Close()
	})

	return ts
}

// do отправляет JSON запрос и декодирует ответ в out, если он задан
func (ts *testServer) do(t *testing.T, method, path string, headers map[string]string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// dial открывает WebSocket к серверу. При отказе handshake возвращает
// статус ответа.
func (ts *testServer) dial(t *testing.T, path string, header http.Header) (*websocket.Conn, int) {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+path, header)
	if err != nil {
		require.NotNil(t, resp, "dial failed: %v", err)
		_ = resp.Body.Close()
		return nil, resp.StatusCode
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn, resp.StatusCode
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// readJSON читает одно сообщение с таймаутом
func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}
