package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isdelr/postboard-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeed(t *testing.T, hub *Hub) (*httptest.Server, chan struct{}) {
	t.Helper()
	registered := make(chan struct{}, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		registered <- struct{}{}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv, registered
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsPostChanges(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv, registered := startFeed(t, hub)
	first := dial(t, srv)
	second := dial(t, srv)
	<-registered
	<-registered

	hub.BroadcastPost("post.created", models.Post{ID: 7, Title: "hi", AuthorID: 1})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Action  string      `json:"action"`
			Payload models.Post `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "post.created", msg.Action)
		assert.Equal(t, int64(7), msg.Payload.ID)
		assert.Equal(t, "hi", msg.Payload.Title)
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv, registered := startFeed(t, hub)
	conn := dial(t, srv)
	<-registered

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// A stopped hub refuses new clients and ignores broadcasts.
	assert.False(t, hub.Register(&Client{send: make(chan []byte, 1)}))
	hub.Broadcast([]byte("ignored"))
	hub.Stop()
}
