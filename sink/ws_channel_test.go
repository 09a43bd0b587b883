package sink

import (
	apperrors "dm-chat/errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dialTestChannel spins up a websocket server whose accepted
// connection is wrapped in a WSChannel, and returns the client side
// for reading what the channel writes.
func dialTestChannel(t *testing.T, bufferSize int) (*WSChannel, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	accepted := make(chan *WSChannel, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- NewWSChannel(slog.Default(), conn, bufferSize, time.Second)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	channel := <-accepted
	t.Cleanup(channel.Close)
	return channel, client
}

func TestWSChannel_Delivers_Payloads_In_Send_Order(t *testing.T) {
	req := require.New(t)
	channel, client := dialTestChannel(t, 8)

	payloads := []string{"first", "second", "third"}
	for _, p := range payloads {
		req.NoError(channel.Send([]byte(p)))
	}

	for _, want := range payloads {
		_, data, err := client.ReadMessage()
		req.NoError(err)
		req.Equal(want, string(data))
	}
}

func TestWSChannel_Send_After_Close_Fails(t *testing.T) {
	req := require.New(t)
	channel, _ := dialTestChannel(t, 8)

	channel.Close()
	// Close twice: must be idempotent
	channel.Close()

	err := channel.Send([]byte("too late"))
	req.ErrorIs(err, apperrors.ErrChannelClosed)
}

func TestWSChannel_Send_After_Close_Never_Enqueues(t *testing.T) {
	req := require.New(t)
	// Room left in the queue: the closed state must win every time,
	// not just when the scheduler happens to pick the done case.
	channel := &WSChannel{
		outbound:    make(chan []byte, 8),
		done:        make(chan struct{}),
		sendTimeout: time.Second,
		log:         slog.Default(),
	}
	close(channel.done)

	for i := 0; i < 200; i++ {
		req.ErrorIs(channel.Send([]byte("too late")), apperrors.ErrChannelClosed)
	}
	req.Empty(channel.outbound)
}

func TestWSChannel_Send_Times_Out_When_Queue_Stays_Full(t *testing.T) {
	req := require.New(t)
	// No writer goroutine drains this channel, so the queue can only
	// hold bufferSize payloads before Send has to give up.
	channel := &WSChannel{
		outbound:    make(chan []byte, 1),
		done:        make(chan struct{}),
		sendTimeout: 20 * time.Millisecond,
		log:         slog.Default(),
	}

	req.NoError(channel.Send([]byte("fits")))
	err := channel.Send([]byte("does not fit"))
	req.ErrorIs(err, apperrors.ErrSlowConsumer)
}
