package objectclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/models"
)

var _ core.AttachmentStore = (*FileStore)(nil)

// FileStore keeps attachments as files in a single directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload dir not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir is the directory served under the public prefix.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes data under a fresh key. O_EXCL guarantees an existing file is
// never overwritten.
func (s *FileStore) Save(ctx context.Context, data io.Reader, originalName, mimetype string) (*models.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := newObjectKey(originalName, time.Now())
		path := filepath.Join(s.dir, key)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create attachment file: %w", err)
		}

		n, err := io.Copy(f, io.LimitReader(data, MaxUploadBytes+1))
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("write attachment file: %w", err)
		}
		if n > MaxUploadBytes {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, ErrTooLarge
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return nil, fmt.Errorf("close attachment file: %w", err)
		}

		return &models.Attachment{Filename: originalName, Path: key, Mimetype: mimetype}, nil
	}

	return nil, errKeyExhausted
}

func (s *FileStore) Delete(ctx context.Context, location string) error {
	path, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", models.ErrNotFound, location)
		}
		return fmt.Errorf("remove attachment file: %w", err)
	}
	return nil
}

func (s *FileStore) GetFile(ctx context.Context, location string) ([]byte, error) {
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, location)
		}
		return nil, fmt.Errorf("read attachment file: %w", err)
	}
	return body, nil
}

func (s *FileStore) GetObjectReader(ctx context.Context, location string) (io.ReadCloser, error) {
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, location)
		}
		return nil, fmt.Errorf("open attachment file: %w", err)
	}
	return f, nil
}

func (s *FileStore) resolve(location string) (string, error) {
	key, err := cleanLocation(location)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}
