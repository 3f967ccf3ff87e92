package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	objectclient "github.com/markdave123-py/outreach/internal/core/object-client"
	"github.com/markdave123-py/outreach/internal/models"
	"github.com/markdave123-py/outreach/internal/testutil"
)

func newTemplateService(t *testing.T) (*TemplateService, *testutil.TemplateRepo, *objectclient.FileStore) {
	t.Helper()
	repo := testutil.NewTemplateRepo()
	store := newFileStore(t)
	return NewTemplateService(repo, store, testutil.MakeNoopLogger()), repo, store
}

func strPtr(s string) *string { return &s }

func TestTemplateService_CreateAndNames(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTemplateService(t)

	tpl, err := svc.Create(ctx, TemplateInput{Name: "welcome", Subject: "Hi", Content: "Hello"}, nil)
	require.NoError(t, err)
	assert.True(t, models.ValidID(tpl.ID))
	assert.Nil(t, tpl.Attachment)

	names, err := svc.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.NameRef{{ID: tpl.ID, Name: "welcome"}}, names)

	require.NoError(t, svc.Delete(ctx, tpl.ID))
	_, err = svc.Get(ctx, tpl.ID)
	assertNotFound(t, err, "Template not found")
}

func TestTemplateService_CreateValidation(t *testing.T) {
	svc, _, _ := newTemplateService(t)

	for _, in := range []TemplateInput{
		{Subject: "s", Content: "c"},
		{Name: "n", Content: "c"},
		{Name: "n", Subject: "s", Content: "   "},
	} {
		_, err := svc.Create(context.Background(), in, nil)
		assertValidation(t, err, "Name, subject and content are required fields")
	}
}

func TestTemplateService_DuplicateName(t *testing.T) {
	ctx := context.Background()
	svc, _, files := newTemplateService(t)

	_, err := svc.Create(ctx, TemplateInput{Name: "welcome", Subject: "a", Content: "b"}, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, TemplateInput{Name: "welcome", Subject: "c", Content: "d"}, newUpload("a.txt", "text/plain", "x"))
	assertConflict(t, err, "Template with this name already exists")
	assert.Empty(t, storedFiles(t, files), "attachment of the rejected record is removed")
}

func TestTemplateService_CreateFailureRemovesAttachment(t *testing.T) {
	svc, repo, files := newTemplateService(t)
	repo.CreateErr = errors.New("db down")

	_, err := svc.Create(context.Background(), TemplateInput{Name: "n", Subject: "s", Content: "c"}, newUpload("a.pdf", "application/pdf", "pdf"))
	require.Error(t, err)
	assert.Empty(t, storedFiles(t, files))
}

func TestTemplateService_UpdateReplacesAttachment(t *testing.T) {
	ctx := context.Background()
	svc, _, files := newTemplateService(t)

	tpl, err := svc.Create(ctx, TemplateInput{Name: "n", Subject: "s", Content: "c"}, newUpload("a.txt", "text/plain", "first"))
	require.NoError(t, err)
	oldPath := tpl.Attachment.Path

	updated, err := svc.Update(ctx, tpl.ID, models.TemplatePatch{Subject: strPtr("new subject")}, newUpload("b.txt", "text/plain", "second"))
	require.NoError(t, err)

	assert.Equal(t, "n", updated.Name)
	assert.Equal(t, "new subject", updated.Subject)
	require.NotNil(t, updated.Attachment)
	assert.Equal(t, "b.txt", updated.Attachment.Filename)
	assert.Equal(t, []string{updated.Attachment.Path}, storedFiles(t, files))
	assert.NotEqual(t, oldPath, updated.Attachment.Path)

	att, body, err := svc.Download(ctx, tpl.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assert.Equal(t, "text/plain", att.Mimetype)
}

func TestTemplateService_FailedUpdateKeepsOldAttachment(t *testing.T) {
	ctx := context.Background()
	svc, _, files := newTemplateService(t)

	_, err := svc.Create(ctx, TemplateInput{Name: "taken", Subject: "s", Content: "c"}, nil)
	require.NoError(t, err)
	tpl, err := svc.Create(ctx, TemplateInput{Name: "n", Subject: "s", Content: "c"}, newUpload("a.txt", "text/plain", "first"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, tpl.ID, models.TemplatePatch{Name: strPtr("taken")}, newUpload("b.txt", "text/plain", "second"))
	assertConflict(t, err, "Template with this name already exists")

	assert.Equal(t, []string{tpl.Attachment.Path}, storedFiles(t, files))

	att, body, err := svc.Download(ctx, tpl.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	assert.Equal(t, "a.txt", att.Filename)
}

func TestTemplateService_UpdateKeepsAttachmentWithoutUpload(t *testing.T) {
	ctx := context.Background()
	svc, _, files := newTemplateService(t)

	tpl, err := svc.Create(ctx, TemplateInput{Name: "n", Subject: "s", Content: "c"}, newUpload("a.txt", "text/plain", "first"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, tpl.ID, models.TemplatePatch{Content: strPtr("changed")}, nil)
	require.NoError(t, err)
	assert.Equal(t, tpl.Attachment, updated.Attachment)
	assert.Len(t, storedFiles(t, files), 1)
}

func TestTemplateService_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTemplateService(t)

	_, err := svc.Update(ctx, "not-an-id", models.TemplatePatch{}, nil)
	assertValidation(t, err, "Invalid template ID format")

	_, err = svc.Update(ctx, "507f1f77bcf86cd799439011", models.TemplatePatch{}, nil)
	assertNotFound(t, err, "Template not found")

	_, err = svc.Update(ctx, "507f1f77bcf86cd799439011", models.TemplatePatch{Name: strPtr(" ")}, nil)
	assertValidation(t, err, "Name, subject and content cannot be empty")
}

func TestTemplateService_DeleteRemovesAttachment(t *testing.T) {
	ctx := context.Background()
	svc, _, files := newTemplateService(t)

	tpl, err := svc.Create(ctx, TemplateInput{Name: "n", Subject: "s", Content: "c"}, newUpload("a.txt", "text/plain", "x"))
	require.NoError(t, err)
	require.Len(t, storedFiles(t, files), 1)

	require.NoError(t, svc.Delete(ctx, tpl.ID))
	assert.Empty(t, storedFiles(t, files))

	err = svc.Delete(ctx, tpl.ID)
	assertNotFound(t, err, "Template not found")
}

func TestTemplateService_DownloadWithoutAttachment(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTemplateService(t)

	tpl, err := svc.Create(ctx, TemplateInput{Name: "n", Subject: "s", Content: "c"}, nil)
	require.NoError(t, err)

	_, _, err = svc.Download(ctx, tpl.ID)
	assertNotFound(t, err, "Attachment not found")
}

func TestTemplateService_OversizedUpload(t *testing.T) {
	svc, _, files := newTemplateService(t)

	up := newUpload("big.txt", "text/plain", "x")
	up.Size = 5<<20 + 1
	_, err := svc.Create(context.Background(), TemplateInput{Name: "n", Subject: "s", Content: "c"}, up)
	assertValidation(t, err, "File too large. Maximum size is 5MB.")
	assert.Empty(t, storedFiles(t, files))
}

func TestTemplateService_SearchPagination(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTemplateService(t)

	const total = 23
	for i := 0; i < total; i++ {
		_, err := svc.Create(ctx, TemplateInput{Name: fmt.Sprintf("tpl-%02d", i), Subject: "s", Content: "c"}, nil)
		require.NoError(t, err)
	}

	first, err := svc.Search(ctx, SearchParams{Limit: "10"})
	require.NoError(t, err)
	assert.Len(t, first.Templates, 10)
	assert.True(t, first.Pagination.HasMore)
	assert.Equal(t, 3, first.Pagination.TotalPages)
	assert.Equal(t, int64(total), first.Pagination.Total)
	assert.Equal(t, "tpl-22", first.Templates[0].Name, "newest first by default")

	last, err := svc.Search(ctx, SearchParams{Limit: "10", Page: "3"})
	require.NoError(t, err)
	assert.Len(t, last.Templates, total%10)
	assert.False(t, last.Pagination.HasMore)

	filtered, err := svc.Search(ctx, SearchParams{Name: "TPL-0", SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, filtered.Templates, 10)
	assert.Equal(t, "tpl-00", filtered.Templates[0].Name)
	assert.False(t, filtered.Pagination.HasMore)
}

func TestTemplateService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTemplateService(t)

	_, err := svc.Create(ctx, TemplateInput{Name: "a", Subject: "s", Content: "1234"}, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, TemplateInput{Name: "b", Subject: "s", Content: "12345"}, newUpload("a.txt", "text/plain", "x"))
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalTemplates)
	assert.Equal(t, int64(1), stats.TemplatesWithAttachments)
	assert.Equal(t, int64(5), stats.AverageContentLength)
	require.Len(t, stats.RecentActivity, 2)
	assert.Equal(t, "b", stats.RecentActivity[0].Name)
}

func TestParseTemplateQuery(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	q, err := ParseTemplateQuery(SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, "createdAt", q.SortBy)
	assert.Equal(t, models.SortDesc, q.SortOrder)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.Limit)

	q, err = ParseTemplateQuery(SearchParams{SortBy: "password", SortOrder: "ASC", StartDate: "2024-03-01", EndDate: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "createdAt", q.SortBy)
	assert.Equal(t, models.SortAsc, q.SortOrder)
	assert.Equal(t, day, *q.StartDate)
	assert.Equal(t, day.Add(24*time.Hour-time.Millisecond), *q.EndDate)

	q, err = ParseTemplateQuery(SearchParams{Page: "2147483647", Limit: "100"})
	require.NoError(t, err)
	assert.Equal(t, (math.MaxInt32-1)*100, q.Skip())
	assert.False(t, models.NewPagination(3, q.Page, q.Limit, 0).HasMore)

	q, err = ParseTemplateQuery(SearchParams{EndDate: "2024-03-01T10:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, day.Add(10*time.Hour), *q.EndDate)

	tests := []struct {
		name   string
		params SearchParams
		msg    string
	}{
		{"page zero", SearchParams{Page: "0"}, "page must be a positive integer"},
		{"page text", SearchParams{Page: "two"}, "page must be a positive integer"},
		{"page overflowing skip", SearchParams{Page: "9223372036854775807", Limit: "10"}, "page must not exceed 2147483647"},
		{"page past int64", SearchParams{Page: "9223372036854775808"}, "page must be a positive integer"},
		{"limit too high", SearchParams{Limit: "101"}, "limit must be between 1 and 100"},
		{"bad order", SearchParams{SortOrder: "up"}, "sortOrder must be asc or desc"},
		{"bad start", SearchParams{StartDate: "yesterday"}, "Invalid startDate"},
		{"bad end", SearchParams{EndDate: "03/01/2024"}, "Invalid endDate"},
		{"inverted range", SearchParams{StartDate: "2024-03-02", EndDate: "2024-03-01"}, "startDate must not be after endDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplateQuery(tt.params)
			assertValidation(t, err, tt.msg)
		})
	}
}
