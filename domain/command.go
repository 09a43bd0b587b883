package domain

import "io"

// FileUpload is one raw file offered by a caller. Content is consumed
// exactly once by the attachment store.
type FileUpload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// SendMessageCommand is the single entry contract shared by the HTTP
// request path and the websocket inbound stream.
type SendMessageCommand struct {
	SenderID   int64
	ReceiverID int64
	Body       string
	Files      []FileUpload
}

type EditMessageCommand struct {
	MessageID   int64
	RequesterID int64
	Body        string
}

type DeleteMessageCommand struct {
	MessageID   int64
	RequesterID int64
}
