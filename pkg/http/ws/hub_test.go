package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialHub starts a server that registers each websocket under a fresh id and returns the client side.
func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, uuid.UUID) {
	t.Helper()
	connIDs := make(chan uuid.UUID, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := uuid.New()
		conn := NewConnection(raw, zerolog.Nop())
		hub.RegisterConnection(id, conn)
		go conn.WritePump()
		connIDs <- id
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case id := <-connIDs:
		return client, id
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not registered")
		return nil, uuid.Nil
	}
}

func TestHubBroadcastToJobReachesSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client, connID := dialHub(t, hub)
	jobID := uuid.New()

	hub.Subscribe(jobID, connID)
	hub.Subscribe(jobID, connID)
	assert.Equal(t, 1, hub.Subscribers(jobID))

	msg, err := NewMessage(TypeJobUpdate, JobUpdatePayload{JobID: jobID.String(), Status: "running"})
	require.NoError(t, err)
	require.NoError(t, hub.BroadcastToJob(jobID, msg))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Message
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, TypeJobUpdate, got.Type)
	assert.Contains(t, string(got.Payload), `"status":"running"`)
}

func TestHubUnsubscribeAndUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	_, connID := dialHub(t, hub)
	jobA, jobB := uuid.New(), uuid.New()

	hub.Subscribe(jobA, connID)
	hub.Subscribe(jobB, connID)
	hub.Unsubscribe(jobA, connID)
	assert.Equal(t, 0, hub.Subscribers(jobA))
	assert.Equal(t, 1, hub.Subscribers(jobB))

	hub.UnregisterConnection(connID)
	assert.Equal(t, 0, hub.Subscribers(jobB))
	assert.ErrorIs(t, hub.SendTo(connID, Message{Type: TypePong}), ErrConnectionNotFound)
}

func TestNewMessageWithoutPayload(t *testing.T) {
	msg, err := NewMessage(TypePong, nil)
	require.NoError(t, err)
	assert.Equal(t, TypePong, msg.Type)
	assert.Nil(t, msg.Payload)
}
