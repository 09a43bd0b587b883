package controllers

import (
	"context"
	"dm-chat/auth"
	"dm-chat/contract"
	"dm-chat/domain"
	"dm-chat/services"
	"dm-chat/sink"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController is the stream entry point of the delivery coordinator.
// One goroutine per connection reads inbound payloads; outbound
// delivery goes through the channel's own writer, so both directions
// stay independent.
type WSController struct {
	delivery    *services.DeliveryService
	registry    contract.Registry
	tokens      *auth.TokenManager
	log         *slog.Logger
	bufferSize  int
	sendTimeout time.Duration
}

func NewWSController(
	delivery *services.DeliveryService,
	registry contract.Registry,
	tokens *auth.TokenManager,
	log *slog.Logger,
	bufferSize int,
	sendTimeout time.Duration,
) *WSController {
	return &WSController{
		delivery:    delivery,
		registry:    registry,
		tokens:      tokens,
		log:         log,
		bufferSize:  bufferSize,
		sendTimeout: sendTimeout,
	}
}

// inboundMessage is one payload sent by the client over an open
// connection.
type inboundMessage struct {
	Type       string   `json:"type"`
	ReceiverID int64    `json:"receiver_id"`
	Message    string   `json:"message"`
	Files      []string `json:"files"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handle upgrades GET /ws. The bearer credential travels as a query
// parameter; a bad or missing token closes the socket with a policy
// violation before any channel is ever registered. A good token
// registers the channel, making it eligible for fanout immediately.
func (wc *WSController) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	claims, err := wc.tokens.Validate(c.Query("token"), auth.TokenTypeAccess)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	userID := claims.UserID

	channel := sink.NewWSChannel(wc.log, conn, wc.bufferSize, wc.sendTimeout)
	wc.registry.Connect(userID, channel)
	// Deregistration happens exactly once here; a fanout-discovered
	// failure racing this path is absorbed by the registry's
	// idempotent removal.
	defer func() {
		wc.registry.Disconnect(userID, channel)
		channel.Close()
		wc.log.Debug("websocket session ended", "user_id", userID)
	}()

	wc.log.Debug("websocket session started", "user_id", userID)
	wc.readLoop(userID, conn, channel)
}

// readLoop consumes inbound payloads until the socket dies. Malformed
// payloads produce a structured rejection on the same channel and the
// connection stays open; only transport errors end the loop.
func (wc *WSController) readLoop(userID int64, conn *websocket.Conn, channel contract.Channel) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var in inboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			wc.reject(channel, "invalid_json", err.Error())
			continue
		}
		if in.Type != "message" {
			wc.reject(channel, "invalid_message", fmt.Sprintf("unsupported type %q", in.Type))
			continue
		}
		if in.ReceiverID == 0 || in.Message == "" {
			wc.reject(channel, "missing_fields", "receiver_id and message are required")
			continue
		}

		files, err := decodeDataURIs(in.Files)
		if err != nil {
			wc.reject(channel, "invalid_files", err.Error())
			continue
		}

		// A send already in flight runs to commit even if the socket
		// dies underneath it; only its own fanout leg becomes a no-op.
		// Hence the detached context.
		_, err = wc.delivery.Send(context.Background(), domain.SendMessageCommand{
			SenderID:   userID,
			ReceiverID: in.ReceiverID,
			Body:       in.Message,
			Files:      files,
		})
		if err != nil {
			// The client gets a bare code; whatever failed inside the
			// coordinator stays in the log.
			wc.log.Warn("stream send failed", "user_id", userID, "error", err)
			wc.reject(channel, "send_failed", "")
		}
		// On success nothing extra goes back: the sender's own
		// channels receive the materialized message via fanout.
	}
}

func (wc *WSController) reject(channel contract.Channel, code, details string) {
	payload, err := json.Marshal(errorPayload{Error: code, Details: details})
	if err != nil {
		return
	}
	if err := channel.Send(payload); err != nil {
		wc.log.Debug("failed to deliver rejection", "code", code, "error", err)
	}
}

// decodeDataURIs turns the stream path's file references into uploads
// for the attachment store. Only data URIs are accepted; anything else
// is rejected before any byte is persisted.
func decodeDataURIs(refs []string) ([]domain.FileUpload, error) {
	var files []domain.FileUpload
	for i, ref := range refs {
		meta, payload, found := strings.Cut(ref, ",")
		if !found || !strings.HasPrefix(meta, "data:") {
			return nil, fmt.Errorf("file %d: only data URIs are supported", i)
		}
		meta = strings.TrimPrefix(meta, "data:")
		contentType, ok := strings.CutSuffix(meta, ";base64")
		if !ok {
			return nil, fmt.Errorf("file %d: base64 encoding is required", i)
		}
		files = append(files, domain.FileUpload{
			Filename:    fmt.Sprintf("attachment-%d", i+1),
			ContentType: contentType,
			Content:     base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload)),
		})
	}
	return files, nil
}
