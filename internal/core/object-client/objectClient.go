package objectclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/markdave123-py/outreach/internal/config"
	"github.com/markdave123-py/outreach/internal/core"
)

// MaxUploadBytes caps every stored attachment.
const MaxUploadBytes int64 = 5 << 20

const maxKeyAttempts = 5

var (
	ErrInvalidLocation = errors.New("invalid attachment location")
	ErrTooLarge        = errors.New("attachment exceeds the size limit")
	errKeyExhausted    = errors.New("could not allocate a unique attachment key")
	extPattern         = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

// NewAttachmentStore builds the store selected by STORAGE_DRIVER.
func NewAttachmentStore(ctx context.Context, cfg *config.Config) (core.AttachmentStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageFS:
		return NewFileStore(cfg.Storage.UploadDir)
	case config.StorageS3:
		return NewS3Store(ctx, cfg)
	case config.StorageMinio:
		return NewMinioStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newObjectKey returns "<unix millis>-<random>.<ext>", keeping the original
// extension when it is a plain short suffix.
func newObjectKey(originalName string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%d-%d%s", at.UnixMilli(), rand.Int64N(1_000_000_000), ext)
}

// cleanLocation maps a stored location to a bare key. Legacy records carry
// the upload directory in front of the key.
func cleanLocation(location string) (string, error) {
	key := filepath.Base(filepath.Clean(strings.TrimSpace(location)))
	if key == "" || key == "." || key == ".." || key == string(filepath.Separator) {
		return "", ErrInvalidLocation
	}
	return key, nil
}
