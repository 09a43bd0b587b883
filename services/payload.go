package services

import (
	"dm-chat/domain"
	"time"

	"github.com/samber/lo"
)

// PublicUploadPrefix is the mount point under which stored attachment
// bytes are served back to clients.
const PublicUploadPrefix = "uploads/"

// MessagePayload is the wire shape of a materialized message. The
// synchronous creation response and the fanout payload are the same
// shape on purpose: clients handle one format regardless of how the
// message reached them.
type MessagePayload struct {
	ID          int64               `json:"id"`
	Message     string              `json:"message"`
	UserID      int64               `json:"user_id"`
	ReceiverID  int64               `json:"receiver_id"`
	CreatedAt   string              `json:"created_at"`
	Attachments []AttachmentPayload `json:"attachments"`
}

type AttachmentPayload struct {
	ID        int64  `json:"id"`
	MessageID int64  `json:"message_id"`
	Filename  string `json:"filename"`
	Mimetype  string `json:"mimetype"`
	Size      int64  `json:"size"`
	FilePath  string `json:"file_path"`
}

func ToMessagePayload(msg domain.Message) MessagePayload {
	return MessagePayload{
		ID:         msg.ID,
		Message:    msg.Body,
		UserID:     msg.SenderID,
		ReceiverID: msg.ReceiverID,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339Nano),
		Attachments: lo.Map(msg.Attachments, func(a domain.Attachment, _ int) AttachmentPayload {
			return AttachmentPayload{
				ID:        a.ID,
				MessageID: a.MessageID,
				Filename:  a.Filename,
				Mimetype:  a.Mimetype,
				Size:      a.Size,
				FilePath:  PublicUploadPrefix + a.FilePath,
			}
		}),
	}
}

func ToMessagePayloads(messages []domain.Message) []MessagePayload {
	return lo.Map(messages, func(m domain.Message, _ int) MessagePayload {
		return ToMessagePayload(m)
	})
}

// UserPayload is the wire shape of a user record. The password hash
// never leaves the server.
type UserPayload struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	RegisteredAt string `json:"registered_at"`
}

func ToUserPayload(user domain.User) UserPayload {
	return UserPayload{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		RegisteredAt: user.RegisteredAt.Format(time.RFC3339Nano),
	}
}
