package sink

import (
	apperrors "dm-chat/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSChannel is the outbound half of one websocket connection. Sends
// go through a bounded queue drained by a single writer goroutine, so
// a slow consumer can never block the caller past sendTimeout and the
// delivery coordinator's commit path stays free of socket I/O.
// Order of successful Send calls is preserved on the wire.
type WSChannel struct {
	conn        *websocket.Conn
	outbound    chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	sendTimeout time.Duration
	log         *slog.Logger
}

func NewWSChannel(log *slog.Logger, conn *websocket.Conn, bufferSize int, sendTimeout time.Duration) *WSChannel {
	ch := &WSChannel{
		conn:        conn,
		outbound:    make(chan []byte, bufferSize),
		done:        make(chan struct{}),
		sendTimeout: sendTimeout,
		log:         log,
	}
	go ch.writeLoop()
	return ch
}

// Send enqueues a payload for the writer goroutine. It fails once the
// channel is closed, or when the queue stays full for sendTimeout.
func (c *WSChannel) Send(payload []byte) error {
	// Checked up front: in the select below a closed done and a free
	// queue slot are both ready, and Go would pick one at random. A
	// Send racing Close may still enqueue, but then its payload only
	// dies with the queue it sits in.
	select {
	case <-c.done:
		return apperrors.ErrChannelClosed
	default:
	}

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return apperrors.ErrChannelClosed
	case c.outbound <- payload:
		return nil
	case <-timer.C:
		return apperrors.ErrSlowConsumer
	}
}

// Close shuts the connection down. Safe to call from the read loop,
// the registry and the writer goroutine at the same time.
func (c *WSChannel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *WSChannel) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.outbound:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("outbound write failed, closing channel", "error", err)
				c.Close()
				return
			}
		}
	}
}
