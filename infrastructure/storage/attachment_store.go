package storage

import (
	"context"
	"dm-chat/domain"
	apperrors "dm-chat/errors"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	copyChunkSize  = 64 * 1024
	fallbackMime   = "application/octet-stream"
	fallbackName   = "file"
	uploadDirPerm  = 0o755
	DefaultSizeCap = 5 * 1024 * 1024
)

// DiskStore streams uploads onto the local filesystem under
// {root}/{ownerID}/. The storage name is a fresh uuid so the original
// filename never influences where bytes land, and a file only becomes
// eligible for linking once its full byte count is confirmed within
// the cap. Any failure mid-stream removes whatever was written.
type DiskStore struct {
	root    string
	maxSize int64
	log     *slog.Logger
}

func NewDiskStore(root string, maxSize int64, log *slog.Logger) *DiskStore {
	return &DiskStore{root: root, maxSize: maxSize, log: log}
}

// Store copies the upload to disk in bounded chunks, counting bytes as
// it goes. The instant the running count would exceed the cap the
// partial file is deleted and ErrAttachmentTooLarge comes back; the
// same cleanup-then-propagate applies to every other I/O failure.
func (s *DiskStore) Store(ctx context.Context, upload domain.FileUpload, ownerID int64) (domain.Descriptor, error) {
	original := SanitizeFilename(upload.Filename)
	id := uuid.New()
	storageName := hex.EncodeToString(id[:]) + filepath.Ext(original)

	dir := filepath.Join(s.root, strconv.FormatInt(ownerID, 10))
	if err := os.MkdirAll(dir, uploadDirPerm); err != nil {
		return domain.Descriptor{}, fmt.Errorf("create upload directory: %w", err)
	}
	path := filepath.Join(dir, storageName)

	out, err := os.Create(path)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("create upload file: %w", err)
	}

	written, sniff, err := s.copyBounded(ctx, out, upload)
	if err != nil {
		_ = out.Close()
		s.discard(path)
		return domain.Descriptor{}, err
	}
	if err := out.Close(); err != nil {
		s.discard(path)
		return domain.Descriptor{}, fmt.Errorf("finalize upload file: %w", err)
	}

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		s.discard(path)
		return domain.Descriptor{}, err
	}

	return domain.Descriptor{
		Filename: original,
		Mimetype: resolveMimetype(upload.ContentType, sniff),
		Size:     written,
		FilePath: filepath.ToSlash(rel),
	}, nil
}

// copyBounded drains the upload into out, refusing to write a single
// byte past the cap. It returns the exact byte count consumed and the
// first chunk for content sniffing.
func (s *DiskStore) copyBounded(ctx context.Context, out *os.File, upload domain.FileUpload) (int64, []byte, error) {
	var written int64
	var sniff []byte
	buf := make([]byte, copyChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return written, sniff, err
		}
		n, readErr := upload.Content.Read(buf)
		if n > 0 {
			if written+int64(n) > s.maxSize {
				return written, sniff, fmt.Errorf("%s: %w", upload.Filename, apperrors.ErrAttachmentTooLarge)
			}
			if _, err := out.Write(buf[:n]); err != nil {
				return written, sniff, fmt.Errorf("write upload chunk: %w", err)
			}
			written += int64(n)
			if sniff == nil {
				sniff = append([]byte(nil), buf[:n]...)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, sniff, nil
			}
			return written, sniff, fmt.Errorf("read upload: %w", readErr)
		}
	}
}

// Remove deletes a stored blob by its storage-relative path. Used when
// a later attachment of the same request fails and already-written
// files must go, and by message deletion.
func (s *DiskStore) Remove(filePath string) {
	s.discard(filepath.Join(s.root, filepath.FromSlash(filePath)))
}

func (s *DiskStore) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Error("failed to remove upload file", "path", path, "error", err)
	}
}

// SanitizeFilename keeps letters, digits, spaces, dots, underscores
// and dashes, drops everything else and trims trailing spaces. An
// empty result falls back to a generic name so the descriptor never
// carries an empty filename.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	clean := strings.TrimRight(b.String(), " ")
	if clean == "" {
		return fallbackName
	}
	return clean
}

func resolveMimetype(declared string, sniff []byte) string {
	if declared != "" {
		return declared
	}
	if len(sniff) > 0 {
		return mimetype.Detect(sniff).String()
	}
	return fallbackMime
}
