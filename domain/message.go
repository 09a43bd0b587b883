// Package domain contains the core concepts of the messaging system.
// This file defines messages and their attachments.
package domain

import "time"

// Message is a direct message between two users. The ID is assigned by
// the ledger on creation and never changes; sender and receiver are
// immutable once the message is committed.
type Message struct {
	ID          int64
	SenderID    int64
	ReceiverID  int64
	Body        string
	CreatedAt   time.Time
	Attachments []Attachment
}

// Attachment is a stored file owned by exactly one message. It is
// created only inside the message creation transaction and is removed
// when its message is deleted.
type Attachment struct {
	ID        int64
	MessageID int64
	Filename  string
	Mimetype  string
	Size      int64
	FilePath  string // relative to the upload root
}

// Descriptor is the result of successfully storing an attachment's
// bytes. It carries everything the ledger needs to link the file to a
// message.
type Descriptor struct {
	Filename string
	Mimetype string
	Size     int64
	FilePath string
}
