package errors

import "fmt"

var (
	ErrBodyTooLong        = fmt.Errorf("message body exceeds the maximum length")
	ErrReceiverRequired   = fmt.Errorf("receiver is required")
	ErrAttachmentTooLarge = fmt.Errorf("attachment exceeds the maximum size")

	// ErrMessageNotFound covers both a missing row and a mutation
	// attempted by a non-sender. Callers must not be able to tell the
	// two apart, so a message someone else owns looks nonexistent.
	ErrMessageNotFound = fmt.Errorf("message not found")

	ErrEmailTaken         = fmt.Errorf("email already registered")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("incorrect email or password")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")

	ErrChannelClosed = fmt.Errorf("channel closed")
	ErrSlowConsumer  = fmt.Errorf("outbound queue full")
	ErrWorkerPanic   = fmt.Errorf("worker panic")
)
