package repositories

import (
	"dm-chat/contract"
	"dm-chat/domain"
	apperrors "dm-chat/errors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"
)

const (
	messageSeqKey    = "seq:message"
	attachmentSeqKey = "seq:attachment"
	seqBandwidth     = 64
)

// MessageRepository persists messages in BadgerDB.
//
// The primary key is formatted as
// "msg:{lowUser:019d}:{highUser:019d}:{timestamp:019d}:{id:019d}" to:
//  1. Group both directions of a conversation under one prefix (the
//     user pair is stored low id first).
//  2. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order), with the ledger id as a collision
//     disconnector if two messages land on the same nanosecond.
//
// A secondary key "idx:{id:019d}" maps the ledger id back to the
// primary key for point lookups, edits and deletes. Attachments live
// inside the message value: they are owned by exactly one message and
// never outlive it, so a single value per message keeps the creation
// transaction trivially atomic and lets history return attachments
// without a second lookup per message.
type MessageRepository struct {
	db     *badger.DB
	log    *slog.Logger
	msgSeq *badger.Sequence
	attSeq *badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	msgSeq, err := db.GetSequence([]byte(messageSeqKey), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	attSeq, err := db.GetSequence([]byte(attachmentSeqKey), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("attachment sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, msgSeq: msgSeq, attSeq: attSeq}, nil
}

// Close releases the id sequences. Unused leased ids are lost, which
// only makes the next ids jump forward; they stay strictly increasing.
func (m *MessageRepository) Close() error {
	if err := m.msgSeq.Release(); err != nil {
		return err
	}
	return m.attSeq.Release()
}

type diskAttachment struct {
	ID       int64
	Filename string
	Mimetype string
	Size     int64
	FilePath string
}

type diskMessage struct {
	ID          int64
	SenderID    int64
	ReceiverID  int64
	Body        string
	At          int64 // unix nanoseconds
	Attachments []diskAttachment
}

func conversationPrefix(userA, userB int64) []byte {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	return []byte(fmt.Sprintf("msg:%019d:%019d:", lo, hi))
}

func messageKey(msg *domain.Message) []byte {
	return append(conversationPrefix(msg.SenderID, msg.ReceiverID),
		fmt.Sprintf("%019d:%019d", msg.CreatedAt.UnixNano(), msg.ID)...)
}

func indexKey(id int64) []byte {
	return []byte(fmt.Sprintf("idx:%019d", id))
}

// Begin opens one atomic message creation unit. The returned Tx must
// end in exactly one Commit or Discard; discarding after a commit is
// harmless.
func (m *MessageRepository) Begin() contract.LedgerTx {
	return &Tx{repo: m, txn: m.db.NewTransaction(true)}
}

type Tx struct {
	repo *MessageRepository
	txn  *badger.Txn
	msg  *domain.Message
}

// CreateMessage assigns the next ledger id and the creation timestamp.
// Nothing is written until Commit.
func (t *Tx) CreateMessage(senderID, receiverID int64, body string) (*domain.Message, error) {
	next, err := t.repo.msgSeq.Next()
	if err != nil {
		return nil, fmt.Errorf("next message id: %w", err)
	}
	t.msg = &domain.Message{
		ID:          int64(next) + 1, // sequences start at zero, ids at one
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
		Attachments: []domain.Attachment{},
	}
	return t.msg, nil
}

// Attach links a stored attachment to the pending message.
func (t *Tx) Attach(d domain.Descriptor) error {
	if t.msg == nil {
		return fmt.Errorf("attach before message creation")
	}
	next, err := t.repo.attSeq.Next()
	if err != nil {
		return fmt.Errorf("next attachment id: %w", err)
	}
	t.msg.Attachments = append(t.msg.Attachments, domain.Attachment{
		ID:        int64(next) + 1,
		MessageID: t.msg.ID,
		Filename:  d.Filename,
		Mimetype:  d.Mimetype,
		Size:      d.Size,
		FilePath:  d.FilePath,
	})
	return nil
}

// Commit writes the message value and its point-lookup index and makes
// both durable in one shot. This is the durability point: after a nil
// return the message is guaranteed retrievable via History.
func (t *Tx) Commit() error {
	if t.msg == nil {
		return fmt.Errorf("commit without message creation")
	}
	value, err := cbor.Marshal(toDiskMessage(t.msg))
	if err != nil {
		return err
	}
	key := messageKey(t.msg)
	if err := t.txn.Set(key, value); err != nil {
		return err
	}
	if err := t.txn.Set(indexKey(t.msg.ID), key); err != nil {
		return err
	}
	return t.txn.Commit()
}

func (t *Tx) Discard() {
	t.txn.Discard()
}

// load resolves a ledger id to its primary key and value. A missing
// index entry surfaces as ErrMessageNotFound.
func (m *MessageRepository) load(txn *badger.Txn, id int64) (diskMessage, []byte, error) {
	item, err := txn.Get(indexKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return diskMessage{}, nil, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return diskMessage{}, nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return diskMessage{}, nil, err
	}
	item, err = txn.Get(key)
	if err != nil {
		return diskMessage{}, nil, err
	}
	var dm diskMessage
	err = item.Value(func(value []byte) error {
		return cbor.Unmarshal(value, &dm)
	})
	return dm, key, err
}

func (m *MessageRepository) Get(id int64) (domain.Message, error) {
	var msg domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		dm, _, err := m.load(txn, id)
		if err != nil {
			return err
		}
		msg = toDomainMessage(dm)
		return nil
	})
	return msg, err
}

// UpdateBody replaces the body of a message. Only the original sender
// may edit; anyone else gets the same ErrMessageNotFound a missing id
// would produce.
func (m *MessageRepository) UpdateBody(id, requesterID int64, body string) (domain.Message, error) {
	var updated domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		dm, key, err := m.load(txn, id)
		if err != nil {
			return err
		}
		if dm.SenderID != requesterID {
			return apperrors.ErrMessageNotFound
		}
		dm.Body = body
		value, err := cbor.Marshal(dm)
		if err != nil {
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}
		updated = toDomainMessage(dm)
		return nil
	})
	return updated, err
}

// Delete removes a message and its attachment rows in one transaction
// and reports which blobs backed them so the caller can remove the
// bytes. Sender-only, with the same existence-hiding as UpdateBody.
func (m *MessageRepository) Delete(id, requesterID int64) ([]string, error) {
	var removed []string
	err := m.db.Update(func(txn *badger.Txn) error {
		dm, key, err := m.load(txn, id)
		if err != nil {
			return err
		}
		if dm.SenderID != requesterID {
			return apperrors.ErrMessageNotFound
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		if err := txn.Delete(indexKey(id)); err != nil {
			return err
		}
		removed = lo.Map(dm.Attachments, func(a diskAttachment, _ int) string {
			return a.FilePath
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// History returns every message exchanged between the two users, both
// directions, ascending by creation time. Attachments ride along in
// the values, so no per-message follow-up reads happen.
func (m *MessageRepository) History(userA, userB int64) ([]domain.Message, error) {
	messages := []domain.Message{}
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := conversationPrefix(userA, userB)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			err := it.Item().Value(func(value []byte) error {
				return cbor.Unmarshal(value, &dm)
			})
			if err != nil {
				return err
			}
			messages = append(messages, toDomainMessage(dm))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ReferencedFiles walks every committed message and collects the blob
// paths still in use. The upload janitor uses this as its keep-list.
func (m *MessageRepository) ReferencedFiles() (map[string]struct{}, error) {
	refs := make(map[string]struct{})
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			err := it.Item().Value(func(value []byte) error {
				return cbor.Unmarshal(value, &dm)
			})
			if err != nil {
				return err
			}
			for _, a := range dm.Attachments {
				refs[a.FilePath] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func toDiskMessage(msg *domain.Message) diskMessage {
	return diskMessage{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		At:         msg.CreatedAt.UnixNano(),
		Attachments: lo.Map(msg.Attachments, func(a domain.Attachment, _ int) diskAttachment {
			return diskAttachment{
				ID:       a.ID,
				Filename: a.Filename,
				Mimetype: a.Mimetype,
				Size:     a.Size,
				FilePath: a.FilePath,
			}
		}),
	}
}

func toDomainMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:         dm.ID,
		SenderID:   dm.SenderID,
		ReceiverID: dm.ReceiverID,
		Body:       dm.Body,
		CreatedAt:  time.Unix(0, dm.At).UTC(),
		Attachments: lo.Map(dm.Attachments, func(a diskAttachment, _ int) domain.Attachment {
			return domain.Attachment{
				ID:        a.ID,
				MessageID: dm.ID,
				Filename:  a.Filename,
				Mimetype:  a.Mimetype,
				Size:      a.Size,
				FilePath:  a.FilePath,
			}
		}),
	}
}
