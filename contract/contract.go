package contract

import (
	"context"
	"dm-chat/domain"
	"reflect"
)

// Channel is one live bidirectional connection belonging to exactly
// one authenticated user. Send must be safe for concurrent use and
// must preserve the order of successful calls; Close is idempotent.
type Channel interface {
	Send(payload []byte) error
	Close()
}

// Registry tracks which user is reachable on which channels. It is
// process-local and volatile: the ledger, not the registry, is the
// source of truth for delivery.
type Registry interface {
	Connect(userID int64, ch Channel)
	Disconnect(userID int64, ch Channel)
	Fanout(userID int64, payload []byte)
}

// Ledger is the durable store of record for messages.
type Ledger interface {
	Begin() LedgerTx
	Get(id int64) (domain.Message, error)
	UpdateBody(id, requesterID int64, body string) (domain.Message, error)
	// Delete removes the message and its attachment rows, returning
	// the storage-relative paths of the blobs that backed them.
	Delete(id, requesterID int64) ([]string, error)
	History(userA, userB int64) ([]domain.Message, error)
	// ReferencedFiles lists every blob path any committed message
	// still points at.
	ReferencedFiles() (map[string]struct{}, error)
}

// LedgerTx is one atomic message creation. Nothing is visible to
// readers until Commit returns nil; Discard after Commit is a no-op.
type LedgerTx interface {
	CreateMessage(senderID, receiverID int64, body string) (*domain.Message, error)
	Attach(d domain.Descriptor) error
	Commit() error
	Discard()
}

// AttachmentStore streams upload bytes to durable storage under a
// size cap. A failed Store never leaves a partial file behind.
type AttachmentStore interface {
	Store(ctx context.Context, upload domain.FileUpload, ownerID int64) (domain.Descriptor, error)
	Remove(filePath string)
}

type UserRepository interface {
	Create(user domain.User) (domain.User, error)
	GetByEmail(email string) (domain.User, error)
	GetByID(id int64) (domain.User, error)
	List(excludeID int64) ([]domain.User, error)
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the
// worker, so supervision logs do not depend on manual naming.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
