package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/outreach/internal/models"
	"github.com/markdave123-py/outreach/internal/testutil"
)

func newContactService() (*ContactService, *testutil.ContactRepo) {
	repo := testutil.NewContactRepo()
	return NewContactService(repo, testutil.MakeNoopLogger()), repo
}

func contactInput(email string) models.ContactInput {
	return models.ContactInput{FirstName: "Ada", LastName: "Lovelace", Email: email}
}

func TestContactService_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newContactService()

	first, err := svc.Upsert(ctx, contactInput("  Ada@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", first.Email)
	assert.Equal(t, models.ContactTypeOther, first.Type)
	assert.True(t, first.IsActive)

	second, err := svc.Upsert(ctx, contactInput("ada@example.com"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 1, repo.Len())
}

func TestContactService_UpsertKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newContactService()

	in := contactInput("ada@example.com")
	note := "met at conference"
	vendor := models.ContactTypeVendor
	in.Note = &note
	in.Type = &vendor
	_, err := svc.Upsert(ctx, in)
	require.NoError(t, err)

	updated, err := svc.Upsert(ctx, contactInput("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, note, updated.Note)
	assert.Equal(t, models.ContactTypeVendor, updated.Type)
}

func TestContactService_UpsertValidation(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.Upsert(context.Background(), models.ContactInput{FirstName: "Ada", Email: "a@b.co"})
	assertValidation(t, err, "First name, last name and email are required fields")

	bad := models.ContactType("friend")
	in := contactInput("a@b.co")
	in.Type = &bad
	_, err = svc.Upsert(context.Background(), in)
	assertValidation(t, err, msgInvalidType)
}

func TestContactService_UpsertRetriesLostRace(t *testing.T) {
	ctx := context.Background()
	svc, repo := newContactService()

	repo.UpsertErr = []error{fmt.Errorf("%w: email", models.ErrDuplicateKey)}
	c, err := svc.Upsert(ctx, contactInput("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", c.Email)

	repo.UpsertErr = []error{models.ErrDuplicateKey, models.ErrDuplicateKey}
	_, err = svc.Upsert(ctx, contactInput("ada@example.com"))
	assertConflict(t, err, "Duplicate email address")
}

func TestContactService_BulkUpsert(t *testing.T) {
	ctx := context.Background()
	svc, repo := newContactService()

	_, err := svc.Upsert(ctx, contactInput("ada@example.com"))
	require.NoError(t, err)

	res, err := svc.BulkUpsert(ctx, []models.ContactInput{
		contactInput("ADA@example.com"),
		contactInput("grace@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(1), res.Upserted)
	assert.Equal(t, 2, repo.Len())

	_, err = svc.BulkUpsert(ctx, []models.ContactInput{contactInput("x@example.com"), {FirstName: "No", LastName: "Mail"}})
	assertValidation(t, err, "Contact at index 1 is missing an email")
	assert.Equal(t, 2, repo.Len(), "an invalid batch writes nothing")

	res, err = svc.BulkUpsert(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestContactService_BulkUpsertPartialEntryKeepsNames(t *testing.T) {
	ctx := context.Background()
	svc, repo := newContactService()

	_, err := svc.Upsert(ctx, contactInput("ada@example.com"))
	require.NoError(t, err)

	phone := "555"
	res, err := svc.BulkUpsert(ctx, []models.ContactInput{{Email: "ada@example.com", PhoneNumber: &phone}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)

	ada := repo.ByEmail("ada@example.com")
	require.NotNil(t, ada)
	assert.Equal(t, "Ada", ada.FirstName)
	assert.Equal(t, "Lovelace", ada.LastName)
	assert.Equal(t, "555", ada.PhoneNumber)
}

func TestContactService_BulkUpsertRequiresNamesForNewContacts(t *testing.T) {
	ctx := context.Background()
	svc, repo := newContactService()

	_, err := svc.Upsert(ctx, contactInput("ada@example.com"))
	require.NoError(t, err)

	_, err = svc.BulkUpsert(ctx, []models.ContactInput{
		{Email: "ada@example.com"},
		{Email: "new@example.com", FirstName: "Only"},
	})
	assertValidation(t, err, "Contact at index 1: First name and last name are required for new contacts")
	assert.Equal(t, 1, repo.Len(), "an invalid batch writes nothing")
	assert.Nil(t, repo.ByEmail("new@example.com"))
}

func TestContactService_BulkUpsertMergesSameEmail(t *testing.T) {
	ctx := context.Background()
	svc, repo := newContactService()

	note := "second entry"
	res, err := svc.BulkUpsert(ctx, []models.ContactInput{
		{FirstName: "Grace", LastName: "Hopper", Email: "G@Example.com"},
		{LastName: "Murray", Email: " g@example.com", Note: &note},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Upserted)
	assert.Equal(t, 1, repo.Len())

	grace := repo.ByEmail("g@example.com")
	require.NotNil(t, grace)
	assert.Equal(t, "Grace", grace.FirstName)
	assert.Equal(t, "Murray", grace.LastName)
	assert.Equal(t, note, grace.Note)
}

func TestContactService_BulkUpsertMergedEntryNeedsNames(t *testing.T) {
	svc, repo := newContactService()

	_, err := svc.BulkUpsert(context.Background(), []models.ContactInput{
		{FirstName: "Ok", LastName: "Fine", Email: "ok@example.com"},
		{Email: "x@example.com"},
		{FirstName: "Half", Email: "X@example.com"},
	})
	assertValidation(t, err, "Contact at index 1: First name and last name are required for new contacts")
	assert.Zero(t, repo.Len())
}

func TestContactService_DeleteAndExport(t *testing.T) {
	ctx := context.Background()
	svc, repo := newContactService()

	ada, err := svc.Upsert(ctx, contactInput("ada@example.com"))
	require.NoError(t, err)
	grace := contactInput("grace@example.com")
	grace.FirstName, grace.LastName = "Grace", "Hopper"
	_, err = svc.Upsert(ctx, grace)
	require.NoError(t, err)

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 2)
	assert.Equal(t, "Hopper", exported[0].LastName)

	require.NoError(t, svc.Delete(ctx, ada.ID, false))
	active, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "grace@example.com", active[0].Email)
	assert.Equal(t, 2, repo.Len(), "soft delete keeps the record")

	stored, err := svc.Get(ctx, ada.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	require.NoError(t, svc.Delete(ctx, ada.ID, true))
	assert.Equal(t, 1, repo.Len())

	err = svc.Delete(ctx, ada.ID, true)
	assertNotFound(t, err, "Contact not found")
}

func TestContactService_MalformedID(t *testing.T) {
	svc, _ := newContactService()

	_, err := svc.Get(context.Background(), "123")
	assertValidation(t, err, "Invalid contact ID format")

	err = svc.Delete(context.Background(), "zzzzzzzzzzzzzzzzzzzzzzzz", false)
	assertValidation(t, err, "Invalid contact ID format")
}
