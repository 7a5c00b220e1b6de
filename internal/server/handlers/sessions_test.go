package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/pkg/api"
)

// startSession создает сессию alice и подключает bob
func startSession(t *testing.T, ts *testServer) (host, guest api.SessionTicketResponse) {
	t.Helper()

	code := ts.do(t, http.MethodPost, "/api/v1/sessions", nil, api.CreateSessionRequest{
		HostID:   "alice",
		Settings: api.SessionSettingsDTO{Name: "legs day", RestSeconds: 90, SyncRestTimers: true},
	}, &host)
	require.Equal(t, http.StatusCreated, code)

	code = ts.do(t, http.MethodPost, "/api/v1/sessions/join", nil, api.JoinSessionRequest{
		Code:          host.Session.Code,
		ParticipantID: "bob",
	}, &guest)
	require.Equal(t, http.StatusOK, code)

	return host, guest
}

func streamHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func TestSessionHandler_CreateAndJoin(t *testing.T) {
	ts := setupTestServer(t, nil)
	host, guest := startSession(t, ts)

	assert.Equal(t, models.SessionActive, models.SessionState(host.Session.State))
	assert.Equal(t, "alice", host.Session.HostID)
	assert.Equal(t, []string{"alice"}, host.Session.Participants)
	assert.Equal(t, "legs day", host.Session.Settings.Name)
	assert.Len(t, host.Session.Code, 6)
	assert.NotEmpty(t, host.Ticket)
	assert.True(t, host.ExpiresAt.After(time.Now()))

	assert.Equal(t, host.Session.ID, guest.Session.ID)
	assert.Equal(t, []string{"alice", "bob"}, guest.Session.Participants)

	claims, err := ts.tickets.Validate(guest.Ticket)
	require.NoError(t, err)
	assert.Equal(t, host.Session.ID, claims.SessionID)
	assert.Equal(t, "bob", claims.ParticipantID)
}

func TestSessionHandler_JoinErrors(t *testing.T) {
	ts := setupTestServer(t, nil)
	host, _ := startSession(t, ts)

	tests := []struct {
		name           string
		req            api.JoinSessionRequest
		expectedStatus int
	}{
		{name: "unknown code", req: api.JoinSessionRequest{Code: "ZZZZZZ", ParticipantID: "carol"}, expectedStatus: http.StatusNotFound},
		{name: "bad participant", req: api.JoinSessionRequest{Code: host.Session.Code, ParticipantID: "no spaces"}, expectedStatus: http.StatusUnprocessableEntity},
		{name: "lowercase code", req: api.JoinSessionRequest{Code: " " + strings.ToLower(host.Session.Code), ParticipantID: "carol"}, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := ts.do(t, http.MethodPost, "/api/v1/sessions/join", nil, tt.req, nil)
			assert.Equal(t, tt.expectedStatus, code)
		})
	}

	code := ts.do(t, http.MethodPost, "/api/v1/sessions", nil, api.CreateSessionRequest{HostID: ""}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestSessionHandler_StreamLifecycle(t *testing.T) {
	ts := setupTestServer(t, nil)
	host, guest := startSession(t, ts)
	sessionPath := "/api/v1/sessions/" + host.Session.ID

	conn, status := ts.dial(t, sessionPath+"/stream", streamHeader(host.Ticket))
	require.Equal(t, http.StatusSwitchingProtocols, status)

	var e api.SessionEventDTO
	readJSON(t, conn, &e)
	assert.Equal(t, string(models.EventSnapshot), e.Type)
	require.NotNil(t, e.Snapshot)
	assert.Equal(t, []string{"alice", "bob"}, e.Snapshot.Participants)
	assert.Equal(t, int64(1), e.Seq)

	var published api.PublishEventResponse
	code := ts.do(t, http.MethodPost, sessionPath+"/events", bearer(guest.Ticket), api.PublishEventRequest{
		Type:    string(models.EventSetCompleted),
		Payload: map[string]any{"reps": 8},
	}, &published)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(2), published.Seq)

	readJSON(t, conn, &e)
	assert.Equal(t, string(models.EventSetCompleted), e.Type)
	assert.Equal(t, "bob", e.SenderID)
	assert.Equal(t, int64(2), e.Seq)
	assert.InDelta(t, 8, e.Payload["reps"], 0)

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, sessionPath+"/end", bearer(host.Ticket), nil, nil))

	readJSON(t, conn, &e)
	assert.Equal(t, string(models.EventSessionEnded), e.Type)
	assert.Equal(t, int64(3), e.Seq)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// после завершения сессия недоступна
	code = ts.do(t, http.MethodPost, sessionPath+"/events", bearer(guest.Ticket), api.PublishEventRequest{Type: string(models.EventProgress)}, nil)
	assert.Equal(t, http.StatusNotFound, code)
	_, status = ts.dial(t, sessionPath+"/stream", streamHeader(guest.Ticket))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSessionHandler_LeaveClosesOwnStream(t *testing.T) {
	ts := setupTestServer(t, nil)
	host, guest := startSession(t, ts)
	sessionPath := "/api/v1/sessions/" + host.Session.ID

	guestConn, _ := ts.dial(t, sessionPath+"/stream", streamHeader(guest.Ticket))
	require.NotNil(t, guestConn)
	hostConn, _ := ts.dial(t, sessionPath+"/stream", streamHeader(host.Ticket))
	require.NotNil(t, hostConn)

	var e api.SessionEventDTO
	readJSON(t, guestConn, &e)
	readJSON(t, hostConn, &e)
	require.Equal(t, string(models.EventSnapshot), e.Type)

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, sessionPath+"/leave", bearer(guest.Ticket), nil, nil))

	readJSON(t, guestConn, &e)
	assert.Equal(t, string(models.EventParticipantLeft), e.Type)
	_, _, err := guestConn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// поток ведущего продолжается
	readJSON(t, hostConn, &e)
	assert.Equal(t, string(models.EventParticipantLeft), e.Type)
	assert.Equal(t, "bob", e.SenderID)

	// ушедший участник больше не может публиковать
	code := ts.do(t, http.MethodPost, sessionPath+"/events", bearer(guest.Ticket), api.PublishEventRequest{Type: string(models.EventProgress)}, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestSessionHandler_PublishAndEndErrors(t *testing.T) {
	ts := setupTestServer(t, nil)
	host, guest := startSession(t, ts)
	sessionPath := "/api/v1/sessions/" + host.Session.ID

	tests := []struct {
		headers        map[string]string
		body           any
		name           string
		path           string
		expectedStatus int
	}{
		{name: "no ticket", path: "/events", body: api.PublishEventRequest{Type: "progress"}, expectedStatus: http.StatusUnauthorized},
		{name: "lifecycle event", path: "/events", headers: bearer(guest.Ticket), body: api.PublishEventRequest{Type: "session_ended"}, expectedStatus: http.StatusUnprocessableEntity},
		{name: "unknown event", path: "/events", headers: bearer(guest.Ticket), body: api.PublishEventRequest{Type: "dance"}, expectedStatus: http.StatusUnprocessableEntity},
		{name: "malformed body", path: "/events", headers: bearer(guest.Ticket), body: "{", expectedStatus: http.StatusBadRequest},
		{name: "guest cannot end", path: "/end", headers: bearer(guest.Ticket), expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := ts.do(t, http.MethodPost, sessionPath+tt.path, tt.headers, tt.body, nil)
			assert.Equal(t, tt.expectedStatus, code)
		})
	}

	// тикет другой сессии не подходит
	other, _ := startSession(t, ts)
	code := ts.do(t, http.MethodPost, sessionPath+"/events", bearer(other.Ticket), api.PublishEventRequest{Type: "progress"}, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestSessionHandler_ExcludeSender(t *testing.T) {
	ts := setupTestServer(t, nil)
	host, guest := startSession(t, ts)
	sessionPath := "/api/v1/sessions/" + host.Session.ID

	guestConn, _ := ts.dial(t, sessionPath+"/stream", streamHeader(guest.Ticket))
	require.NotNil(t, guestConn)

	var e api.SessionEventDTO
	readJSON(t, guestConn, &e)
	require.Equal(t, string(models.EventSnapshot), e.Type)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, sessionPath+"/events", bearer(guest.Ticket),
		api.PublishEventRequest{Type: string(models.EventProgress), ExcludeSender: true}, nil))
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, sessionPath+"/events", bearer(host.Ticket),
		api.PublishEventRequest{Type: string(models.EventRestTimerSynced), Payload: map[string]any{"seconds": 90}}, nil))

	// собственное событие гостя пропущено, первым приходит событие ведущего
	readJSON(t, guestConn, &e)
	assert.Equal(t, string(models.EventRestTimerSynced), e.Type)
	assert.Equal(t, "alice", e.SenderID)
	assert.Equal(t, int64(3), e.Seq)
}
