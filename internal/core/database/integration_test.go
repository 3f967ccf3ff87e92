//go:build integration

package db_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/markdave123-py/outreach/internal/config"
	db "github.com/markdave123-py/outreach/internal/core/database"
	"github.com/markdave123-py/outreach/internal/models"
)

var mongoURI string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		panic(err)
	}
	mongoURI = fmt.Sprintf("mongodb://%s:%s", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newClient(t *testing.T) *db.DatabaseClient {
	t.Helper()
	cfg := &config.Config{Mongo: config.Mongo{
		URI:            mongoURI,
		Database:       fmt.Sprintf("outreach_%d", time.Now().UnixNano()),
		ConnectTimeout: 10 * time.Second,
	}}
	client, err := db.NewDatabaseClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func strPtr(s string) *string { return &s }

func TestContactRepository(t *testing.T) {
	ctx := context.Background()
	repo := newClient(t).Contacts()

	in := models.ContactInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Note: strPtr("math")}

	first, err := repo.UpsertByEmail(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.Equal(t, models.ContactTypeOther, first.Type)

	second, err := repo.UpsertByEmail(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "math", second.Note)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	res, err := repo.BulkUpsert(ctx, []models.ContactInput{
		{FirstName: "Ada", LastName: "King", Email: "ada@example.com"},
		{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(1), res.Upserted)

	phone := "555"
	_, err = repo.BulkUpsert(ctx, []models.ContactInput{{Email: "ada@example.com", PhoneNumber: &phone}})
	require.NoError(t, err)
	ada, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", ada.FirstName)
	assert.Equal(t, "King", ada.LastName)
	assert.Equal(t, "555", ada.PhoneNumber)

	existing, err := repo.ExistingEmails(ctx, []string{"ada@example.com", "nobody@example.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ada@example.com": true}, existing)

	require.NoError(t, repo.Deactivate(ctx, first.ID))
	exported, err := repo.ExportActive(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, "alan@example.com", exported[0].Email)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.GetByID(ctx, first.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, first.ID), models.ErrNotFound))
}

func TestTemplateRepository(t *testing.T) {
	ctx := context.Background()
	repo := newClient(t).Templates()

	for i := 0; i < 7; i++ {
		tpl := &models.Template{Name: fmt.Sprintf("welcome-%d", i), Subject: "Hi", Content: "Hello"}
		if i%2 == 0 {
			tpl.Attachment = &models.Attachment{Filename: "a.pdf", Path: fmt.Sprintf("%d.pdf", i), Mimetype: "application/pdf"}
		}
		require.NoError(t, repo.Create(ctx, tpl))
		require.NotEmpty(t, tpl.ID)
	}

	err := repo.Create(ctx, &models.Template{Name: "welcome-0", Subject: "x", Content: "y"})
	assert.True(t, errors.Is(err, models.ErrDuplicateKey))

	q := models.TemplateQuery{Name: "WELCOME", SortBy: "createdAt", SortOrder: models.SortDesc, Page: 3, Limit: 3}
	page, total, err := repo.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Len(t, page, 1)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.TotalTemplates)
	assert.Equal(t, int64(4), stats.TemplatesWithAttachments)
	assert.Equal(t, int64(5), stats.AverageContentLength)
	assert.Len(t, stats.RecentActivity, 5)

	names, err := repo.Names(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 7)
	assert.Equal(t, "welcome-0", names[0].Name)

	updated, err := repo.Update(ctx, names[1].ID, models.TemplatePatch{Subject: strPtr("Hey")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hey", updated.Subject)
	assert.Equal(t, "Hello", updated.Content)

	_, err = repo.Update(ctx, names[1].ID, models.TemplatePatch{Name: strPtr("welcome-0")}, nil)
	assert.True(t, errors.Is(err, models.ErrDuplicateKey))
}

func TestPromptTemplateRepository(t *testing.T) {
	ctx := context.Background()
	repo := newClient(t).PromptTemplates()

	created, err := repo.UpsertByName(ctx, &models.AIPromptTemplate{Name: "summarise", Agent: "mailer", Prompt: "Summarise"})
	require.NoError(t, err)

	att := &models.Attachment{Filename: "ctx.txt", Path: "1-1.txt", Mimetype: "text/plain"}
	updated, err := repo.UpsertByName(ctx, &models.AIPromptTemplate{Name: "summarise", Agent: "mailer", Prompt: "Summarise briefly", Attachment: att})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, att, updated.Attachment)

	kept, err := repo.UpsertByName(ctx, &models.AIPromptTemplate{Name: "summarise", Agent: "mailer", Prompt: "Again"})
	require.NoError(t, err)
	assert.Equal(t, att, kept.Attachment)

	names, err := repo.Names(ctx)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "mailer", names[0].Agent)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := newClient(t).Users()

	u := &models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, u))

	err := repo.Create(ctx, &models.User{Name: "Other", Email: "ada@example.com", PasswordHash: "hash"})
	assert.True(t, errors.Is(err, models.ErrDuplicateKey))

	img := &models.Attachment{Filename: "me.png", Path: "1-1.png", Mimetype: "image/png"}
	withImage, err := repo.SetProfileImage(ctx, u.ID, img)
	require.NoError(t, err)
	assert.Equal(t, img, withImage.ProfileImage)

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
}
