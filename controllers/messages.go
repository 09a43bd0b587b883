package controllers

import (
	"dm-chat/domain"
	"dm-chat/middleware"
	"dm-chat/services"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// MessageController is the synchronous request/response entry point of
// the delivery coordinator. Unlike the websocket path it returns the
// materialized message to the caller, on top of the shared fanout.
type MessageController struct {
	delivery *services.DeliveryService
	log      *slog.Logger
}

func NewMessageController(delivery *services.DeliveryService, log *slog.Logger) *MessageController {
	return &MessageController{delivery: delivery, log: log}
}

// Create handles POST /chat/messages: a multipart form with the body,
// the receiver and zero or more files. File contents are streamed
// straight into the attachment store, never buffered whole.
func (mc *MessageController) Create(c *gin.Context) {
	senderID := middleware.CurrentUserID(c)

	receiverID, err := strconv.ParseInt(c.PostForm("receiver_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "receiver_id must be an integer"})
		return
	}

	cmd := domain.SendMessageCommand{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       c.PostForm("message"),
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid multipart form"})
		return
	}
	for _, header := range form.File["files"] {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable file part"})
			return
		}
		defer file.Close()
		cmd.Files = append(cmd.Files, domain.FileUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     file,
		})
	}

	msg, err := mc.delivery.Send(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, services.ToMessagePayload(msg))
}

// Update handles PUT /chat/messages/:id. Sender-only; a message owned
// by someone else responds exactly like a missing one.
func (mc *MessageController) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message id must be an integer"})
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	msg, err := mc.delivery.Edit(domain.EditMessageCommand{
		MessageID:   id,
		RequesterID: middleware.CurrentUserID(c),
		Body:        body.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ToMessagePayload(msg))
}

// Delete handles DELETE /chat/messages/:id, cascading to attachments
// and their stored bytes.
func (mc *MessageController) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message id must be an integer"})
		return
	}

	err = mc.delivery.Delete(domain.DeleteMessageCommand{
		MessageID:   id,
		RequesterID: middleware.CurrentUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "message_id": id})
}

// History handles GET /chat/messages/:id, where :id is the other
// participant. Messages come back ascending by creation time with
// attachments included.
func (mc *MessageController) History(c *gin.Context) {
	otherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user id must be an integer"})
		return
	}

	messages, err := mc.delivery.History(middleware.CurrentUserID(c), otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ToMessagePayloads(messages))
}
