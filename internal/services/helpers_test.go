package services

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	objectclient "github.com/markdave123-py/outreach/internal/core/object-client"
	"github.com/markdave123-py/outreach/internal/models"
)

func newFileStore(t *testing.T) *objectclient.FileStore {
	t.Helper()
	store, err := objectclient.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func newUpload(name, mimetype, body string) *Upload {
	return &Upload{Filename: name, Mimetype: mimetype, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func storedFiles(t *testing.T, store *objectclient.FileStore) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func assertValidation(t *testing.T, err error, msg string) {
	t.Helper()
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Equal(t, msg, verr.Message)
}

func assertNotFound(t *testing.T, err error, msg string) {
	t.Helper()
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.EqualError(t, err, msg)
}

func assertConflict(t *testing.T, err error, msg string) {
	t.Helper()
	require.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.EqualError(t, err, msg)
}
