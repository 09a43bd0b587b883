package services

import (
	"context"
	"dm-chat/contract"
	"dm-chat/domain"
	apperrors "dm-chat/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// DeliveryService orchestrates a send request end to end:
// validate, persist the message row, stream each attachment, commit,
// then fan the materialized message out to every open channel of the
// receiver and the sender. Persistence failures roll everything back,
// including blobs already written for the request; fanout failures are
// logged and swallowed, because once the commit succeeded the caller
// was promised durability, not instant delivery.
//
// Both entry points feed this type: the synchronous HTTP path (which
// also returns the message) and the websocket inbound stream (where
// fanout is the only response).
type DeliveryService struct {
	ledger        contract.Ledger
	store         contract.AttachmentStore
	registry      contract.Registry
	log           *slog.Logger
	maxBodyLength int
}

func NewDeliveryService(
	ledger contract.Ledger,
	store contract.AttachmentStore,
	registry contract.Registry,
	log *slog.Logger,
	maxBodyLength int,
) *DeliveryService {
	return &DeliveryService{
		ledger:        ledger,
		store:         store,
		registry:      registry,
		log:           log,
		maxBodyLength: maxBodyLength,
	}
}

func (s *DeliveryService) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := s.validateBody(cmd.Body); err != nil {
		return domain.Message{}, err
	}
	if cmd.ReceiverID <= 0 {
		return domain.Message{}, apperrors.ErrReceiverRequired
	}

	tx := s.ledger.Begin()
	defer tx.Discard()

	msg, err := tx.CreateMessage(cmd.SenderID, cmd.ReceiverID, cmd.Body)
	if err != nil {
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}

	// Blobs written so far for this request. On the first failure
	// anywhere below the commit, every one of them is removed: a
	// partial attachment set must never survive, on disk or in rows.
	var stored []string
	cleanup := func() {
		for _, path := range stored {
			s.store.Remove(path)
		}
	}

	for _, file := range cmd.Files {
		descriptor, err := s.store.Store(ctx, file, cmd.SenderID)
		if err != nil {
			cleanup()
			return domain.Message{}, err
		}
		stored = append(stored, descriptor.FilePath)
		if err := tx.Attach(descriptor); err != nil {
			cleanup()
			return domain.Message{}, fmt.Errorf("attach %s: %w", descriptor.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		cleanup()
		return domain.Message{}, fmt.Errorf("commit message: %w", err)
	}

	// Durability point reached. Everything below is best effort.
	s.fanout(*msg)
	return *msg, nil
}

func (s *DeliveryService) fanout(msg domain.Message) {
	payload, err := json.Marshal(ToMessagePayload(msg))
	if err != nil {
		s.log.Error("failed to encode fanout payload", "message_id", msg.ID, "error", err)
		return
	}
	s.registry.Fanout(msg.ReceiverID, payload)
	if msg.SenderID != msg.ReceiverID {
		// The sender's other sessions observe their own sent message.
		s.registry.Fanout(msg.SenderID, payload)
	}
}

// Edit replaces the body of a message the requester sent. A message
// someone else sent behaves exactly like a missing one.
func (s *DeliveryService) Edit(cmd domain.EditMessageCommand) (domain.Message, error) {
	if err := s.validateBody(cmd.Body); err != nil {
		return domain.Message{}, err
	}
	return s.ledger.UpdateBody(cmd.MessageID, cmd.RequesterID, cmd.Body)
}

// Delete removes a message the requester sent, its attachment rows and
// their blobs.
func (s *DeliveryService) Delete(cmd domain.DeleteMessageCommand) error {
	removed, err := s.ledger.Delete(cmd.MessageID, cmd.RequesterID)
	if err != nil {
		return err
	}
	for _, path := range removed {
		s.store.Remove(path)
	}
	return nil
}

// History returns the full conversation between two users, ascending
// by creation time, attachments included.
func (s *DeliveryService) History(userA, userB int64) ([]domain.Message, error) {
	return s.ledger.History(userA, userB)
}

// validateBody enforces the length cap only. An empty body is legal:
// a message may consist of nothing but attachments.
func (s *DeliveryService) validateBody(body string) error {
	if utf8.RuneCountInString(body) > s.maxBodyLength {
		return apperrors.ErrBodyTooLong
	}
	return nil
}
