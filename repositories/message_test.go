package repositories

import (
	"dm-chat/domain"
	apperrors "dm-chat/errors"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessageRepository(t *testing.T) *MessageRepository {
	t.Helper()
	repo, err := NewMessageRepository(newTestDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *MessageRepository, senderID, receiverID int64,
	body string, files ...domain.Descriptor) domain.Message {
	t.Helper()
	tx := repo.Begin()
	defer tx.Discard()
	msg, err := tx.CreateMessage(senderID, receiverID, body)
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, tx.Attach(f))
	}
	require.NoError(t, tx.Commit())
	return *msg
}

func TestMessageRepository_History_Covers_Both_Directions(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)

	// Given a conversation with messages flowing both ways
	mustCreate(t, repo, 1, 2, "hello")
	mustCreate(t, repo, 2, 1, "hi back")
	mustCreate(t, repo, 1, 2, "how are you?")

	// When either participant asks for the history
	fromFirst, err := repo.History(1, 2)
	req.NoError(err)
	fromSecond, err := repo.History(2, 1)
	req.NoError(err)

	// Then both see the same three messages, oldest first
	req.Len(fromFirst, 3)
	req.Equal(fromFirst, fromSecond)
	req.Equal("hello", fromFirst[0].Body)
	req.Equal("hi back", fromFirst[1].Body)
	req.Equal("how are you?", fromFirst[2].Body)
}

func TestMessageRepository_History_Is_Scoped_To_The_Pair(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)

	mustCreate(t, repo, 1, 2, "for user two")
	mustCreate(t, repo, 1, 3, "for user three")

	history, err := repo.History(1, 2)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("for user two", history[0].Body)

	// A pair with no traffic yields an empty slice, not nil
	empty, err := repo.History(2, 3)
	req.NoError(err)
	req.NotNil(empty)
	req.Empty(empty)
}

func TestMessageRepository_Ids_Are_Strictly_Increasing(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)

	first := mustCreate(t, repo, 1, 2, "one")
	second := mustCreate(t, repo, 1, 2, "two")
	third := mustCreate(t, repo, 2, 1, "three")

	req.Positive(first.ID)
	req.Greater(second.ID, first.ID)
	req.Greater(third.ID, second.ID)
}

func TestMessageRepository_Discard_Leaves_No_Trace(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)

	// Given a creation that is abandoned before commit
	tx := repo.Begin()
	msg, err := tx.CreateMessage(1, 2, "never sent")
	req.NoError(err)
	req.NoError(tx.Attach(domain.Descriptor{Filename: "a.png", FilePath: "1/a.png"}))
	tx.Discard()

	// Then neither the message nor its history entry exists
	_, err = repo.Get(msg.ID)
	req.ErrorIs(err, apperrors.ErrMessageNotFound)
	history, err := repo.History(1, 2)
	req.NoError(err)
	req.Empty(history)
}

func TestMessageRepository_Attachments_Ride_Along_In_History(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)

	created := mustCreate(t, repo, 1, 2, "see attached",
		domain.Descriptor{Filename: "report.pdf", Mimetype: "application/pdf", Size: 1234, FilePath: "1/abc.pdf"},
		domain.Descriptor{Filename: "photo.png", Mimetype: "image/png", Size: 99, FilePath: "1/def.png"},
	)

	history, err := repo.History(1, 2)
	req.NoError(err)
	req.Len(history, 1)
	req.Len(history[0].Attachments, 2)

	att := history[0].Attachments[0]
	req.Equal(created.ID, att.MessageID)
	req.Equal("report.pdf", att.Filename)
	req.Equal("application/pdf", att.Mimetype)
	req.Equal(int64(1234), att.Size)
	req.Equal("1/abc.pdf", att.FilePath)
}

func TestMessageRepository_Edit_Is_Sender_Only(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)
	msg := mustCreate(t, repo, 1, 2, "original")

	// The receiver cannot tell "not yours" from "does not exist"
	_, err := repo.UpdateBody(msg.ID, 2, "hijacked")
	req.ErrorIs(err, apperrors.ErrMessageNotFound)

	// An unknown id yields the exact same error
	_, err = repo.UpdateBody(99999, 1, "ghost")
	req.ErrorIs(err, apperrors.ErrMessageNotFound)

	// The sender succeeds and the change is durable
	updated, err := repo.UpdateBody(msg.ID, 1, "edited")
	req.NoError(err)
	req.Equal("edited", updated.Body)
	stored, err := repo.Get(msg.ID)
	req.NoError(err)
	req.Equal("edited", stored.Body)
	req.Equal(msg.CreatedAt, stored.CreatedAt)
}

func TestMessageRepository_Delete_Cascades_And_Reports_Blobs(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)
	msg := mustCreate(t, repo, 1, 2, "doomed",
		domain.Descriptor{Filename: "a.bin", FilePath: "1/aaaa.bin"},
		domain.Descriptor{Filename: "b.bin", FilePath: "1/bbbb.bin"},
	)

	// The receiver cannot delete
	_, err := repo.Delete(msg.ID, 2)
	req.ErrorIs(err, apperrors.ErrMessageNotFound)

	// The sender can, and gets back the blob paths to remove
	removed, err := repo.Delete(msg.ID, 1)
	req.NoError(err)
	req.ElementsMatch([]string{"1/aaaa.bin", "1/bbbb.bin"}, removed)

	_, err = repo.Get(msg.ID)
	req.ErrorIs(err, apperrors.ErrMessageNotFound)
	history, err := repo.History(1, 2)
	req.NoError(err)
	req.Empty(history)
}

func TestMessageRepository_ReferencedFiles_Lists_Live_Blobs_Only(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepository(t)

	kept := mustCreate(t, repo, 1, 2, "kept",
		domain.Descriptor{Filename: "keep.png", FilePath: "1/keep.png"})
	doomed := mustCreate(t, repo, 1, 2, "doomed",
		domain.Descriptor{Filename: "drop.png", FilePath: "1/drop.png"})
	_ = kept

	_, err := repo.Delete(doomed.ID, 1)
	req.NoError(err)

	refs, err := repo.ReferencedFiles()
	req.NoError(err)
	req.Contains(refs, "1/keep.png")
	req.NotContains(refs, "1/drop.png")
}
