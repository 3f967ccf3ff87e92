package testutil

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/models"
)

// The repositories below keep records in memory and mirror the MongoDB
// implementations: unique keys, ErrNotFound on misses and validation errors
// on malformed ids.

var (
	_ core.ContactRepository        = (*ContactRepo)(nil)
	_ core.TemplateRepository       = (*TemplateRepo)(nil)
	_ core.PromptTemplateRepository = (*PromptRepo)(nil)
	_ core.UserRepository           = (*UserRepo)(nil)
)

func checkID(id string) error {
	if !models.ValidID(id) {
		return models.NewValidationError("invalid id format")
	}
	return nil
}

func duplicate(field string) error {
	return fmt.Errorf("%w: %s", models.ErrDuplicateKey, field)
}

// clock hands out strictly increasing timestamps so ordering by time is
// deterministic within a test.
type clock struct {
	last time.Time
}

func (c *clock) now() time.Time {
	t := time.Now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

func cloneAttachment(a *models.Attachment) *models.Attachment {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// ContactRepo is an in-memory core.ContactRepository.
type ContactRepo struct {
	mu    sync.Mutex
	clock clock
	byID  map[string]*models.Contact
	order []string

	// UpsertErr queues errors returned by the next UpsertByEmail calls.
	UpsertErr []error
}

func NewContactRepo() *ContactRepo {
	return &ContactRepo{byID: map[string]*models.Contact{}}
}

func (r *ContactRepo) findByEmail(email string) *models.Contact {
	for _, c := range r.byID {
		if c.Email == email {
			return c
		}
	}
	return nil
}

func (r *ContactRepo) apply(in models.ContactInput, at time.Time) (*models.Contact, bool) {
	c := r.findByEmail(in.Email)
	created := c == nil
	if created {
		c = &models.Contact{
			ID:        bson.NewObjectID().Hex(),
			Email:     in.Email,
			Type:      models.ContactTypeOther,
			IsActive:  true,
			CreatedAt: at,
		}
		r.byID[c.ID] = c
		r.order = append(r.order, c.ID)
	}

	if in.FirstName != "" {
		c.FirstName = in.FirstName
	}
	if in.LastName != "" {
		c.LastName = in.LastName
	}
	if in.PhoneNumber != nil {
		c.PhoneNumber = *in.PhoneNumber
	}
	if in.Note != nil {
		c.Note = *in.Note
	}
	if in.CompanyName != nil {
		c.CompanyName = *in.CompanyName
	}
	if in.WebSite != nil {
		c.WebSite = *in.WebSite
	}
	if in.Type != nil {
		c.Type = *in.Type
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = at
	return c, created
}

func (r *ContactRepo) UpsertByEmail(_ context.Context, in models.ContactInput) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.UpsertErr) > 0 {
		err := r.UpsertErr[0]
		r.UpsertErr = r.UpsertErr[1:]
		return nil, err
	}

	c, _ := r.apply(in, r.clock.now())
	cp := *c
	return &cp, nil
}

func (r *ContactRepo) BulkUpsert(_ context.Context, in []models.ContactInput) (models.BulkResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res models.BulkResult
	at := r.clock.now()
	for _, c := range in {
		if _, created := r.apply(c, at); created {
			res.Upserted++
		} else {
			res.Matched++
			res.Modified++
		}
	}
	return res, nil
}

func (r *ContactRepo) ExistingEmails(_ context.Context, emails []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := make(map[string]bool, len(emails))
	for _, e := range emails {
		if r.findByEmail(e) != nil {
			found[e] = true
		}
	}
	return found, nil
}

// ByEmail returns a copy of the contact stored under email, or nil.
func (r *ContactRepo) ByEmail(email string) *models.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findByEmail(email)
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (r *ContactRepo) GetByID(_ context.Context, id string) (*models.Contact, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ContactRepo) active() []models.Contact {
	out := []models.Contact{}
	for i := len(r.order) - 1; i >= 0; i-- {
		if c, ok := r.byID[r.order[i]]; ok && c.IsActive {
			out = append(out, *c)
		}
	}
	return out
}

func (r *ContactRepo) ListActive(_ context.Context) ([]models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active(), nil
}

func (r *ContactRepo) ExportActive(_ context.Context) ([]models.ContactExport, error) {
	r.mu.Lock()
	active := r.active()
	r.mu.Unlock()

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].LastName != active[j].LastName {
			return active[i].LastName < active[j].LastName
		}
		return active[i].FirstName < active[j].FirstName
	})

	out := make([]models.ContactExport, 0, len(active))
	for _, c := range active {
		out = append(out, models.ContactExport{
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			Email:       c.Email,
			PhoneNumber: c.PhoneNumber,
			Note:        c.Note,
			CompanyName: c.CompanyName,
			WebSite:     c.WebSite,
			Type:        c.Type,
		})
	}
	return out, nil
}

func (r *ContactRepo) Deactivate(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = r.clock.now()
	return nil
}

func (r *ContactRepo) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// Len returns the number of stored contacts, active or not.
func (r *ContactRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// TemplateRepo is an in-memory core.TemplateRepository.
type TemplateRepo struct {
	mu    sync.Mutex
	clock clock
	byID  map[string]*models.Template

	// CreateErr, when set, fails every Create.
	CreateErr error
}

func NewTemplateRepo() *TemplateRepo {
	return &TemplateRepo{byID: map[string]*models.Template{}}
}

func (r *TemplateRepo) nameTaken(name, exceptID string) bool {
	for id, t := range r.byID {
		if t.Name == name && id != exceptID {
			return true
		}
	}
	return false
}

func copyTemplate(t *models.Template) models.Template {
	cp := *t
	cp.Attachment = cloneAttachment(t.Attachment)
	return cp
}

func (r *TemplateRepo) Create(_ context.Context, t *models.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CreateErr != nil {
		return r.CreateErr
	}
	if r.nameTaken(t.Name, "") {
		return duplicate("name")
	}

	at := r.clock.now()
	t.ID = bson.NewObjectID().Hex()
	t.CreatedAt = at
	t.UpdatedAt = at
	stored := copyTemplate(t)
	r.byID[t.ID] = &stored
	return nil
}

func (r *TemplateRepo) GetByID(_ context.Context, id string) (*models.Template, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := copyTemplate(t)
	return &cp, nil
}

func (r *TemplateRepo) all() []models.Template {
	out := make([]models.Template, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, copyTemplate(t))
	}
	return out
}

func (r *TemplateRepo) List(_ context.Context) ([]models.Template, error) {
	r.mu.Lock()
	out := r.all()
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *TemplateRepo) Names(_ context.Context) ([]models.NameRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.NameRef, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, models.NameRef{ID: t.ID, Name: t.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TemplateRepo) Update(_ context.Context, id string, patch models.TemplatePatch, attachment *models.Attachment) (*models.Template, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.Name != nil && r.nameTaken(*patch.Name, id) {
		return nil, duplicate("name")
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Subject != nil {
		t.Subject = *patch.Subject
	}
	if patch.Content != nil {
		t.Content = *patch.Content
	}
	if attachment != nil {
		t.Attachment = cloneAttachment(attachment)
	}
	t.UpdatedAt = r.clock.now()

	cp := copyTemplate(t)
	return &cp, nil
}

func (r *TemplateRepo) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func compareTemplates(a, b models.Template, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "subject":
		return strings.Compare(a.Subject, b.Subject)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *TemplateRepo) Search(_ context.Context, q models.TemplateQuery) ([]models.Template, int64, error) {
	r.mu.Lock()
	all := r.all()
	r.mu.Unlock()

	matched := []models.Template{}
	for _, t := range all {
		if !containsFold(t.Name, q.Name) || !containsFold(t.Subject, q.Subject) || !containsFold(t.Content, q.Content) {
			continue
		}
		if q.StartDate != nil && t.CreatedAt.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && t.CreatedAt.After(*q.EndDate) {
			continue
		}
		matched = append(matched, t)
	}

	order := q.SortOrder
	if order == 0 {
		order = models.SortDesc
	}
	sort.Slice(matched, func(i, j int) bool {
		c := compareTemplates(matched[i], matched[j], q.SortBy)
		if c == 0 {
			c = strings.Compare(matched[i].ID, matched[j].ID)
		}
		return c*int(order) < 0
	})

	total := int64(len(matched))
	skip := q.Skip()
	if skip >= len(matched) {
		return []models.Template{}, total, nil
	}
	end := len(matched)
	if q.Limit > 0 && skip+q.Limit < end {
		end = skip + q.Limit
	}
	return matched[skip:end], total, nil
}

func (r *TemplateRepo) Stats(_ context.Context) (*models.TemplateStats, error) {
	r.mu.Lock()
	all := r.all()
	r.mu.Unlock()

	stats := &models.TemplateStats{TotalTemplates: int64(len(all)), RecentActivity: []models.TemplateActivity{}}
	var contentLen int
	for _, t := range all {
		if t.Attachment != nil {
			stats.TemplatesWithAttachments++
		}
		contentLen += len([]rune(t.Content))
	}
	if len(all) > 0 {
		stats.AverageContentLength = int64(math.Round(float64(contentLen) / float64(len(all))))
	}

	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	for i := 0; i < len(all) && i < 5; i++ {
		stats.RecentActivity = append(stats.RecentActivity, models.TemplateActivity{
			ID:        all[i].ID,
			Name:      all[i].Name,
			UpdatedAt: all[i].UpdatedAt,
		})
	}
	return stats, nil
}

// PromptRepo is an in-memory core.PromptTemplateRepository.
type PromptRepo struct {
	mu    sync.Mutex
	clock clock
	byID  map[string]*models.AIPromptTemplate
}

func NewPromptRepo() *PromptRepo {
	return &PromptRepo{byID: map[string]*models.AIPromptTemplate{}}
}

func copyPrompt(p *models.AIPromptTemplate) models.AIPromptTemplate {
	cp := *p
	cp.Attachment = cloneAttachment(p.Attachment)
	return cp
}

func (r *PromptRepo) byName(name string) *models.AIPromptTemplate {
	for _, p := range r.byID {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (r *PromptRepo) Create(_ context.Context, p *models.AIPromptTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byName(p.Name) != nil {
		return duplicate("name")
	}
	at := r.clock.now()
	p.ID = bson.NewObjectID().Hex()
	p.CreatedAt = at
	p.UpdatedAt = at
	stored := copyPrompt(p)
	r.byID[p.ID] = &stored
	return nil
}

func (r *PromptRepo) GetByID(_ context.Context, id string) (*models.AIPromptTemplate, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := copyPrompt(p)
	return &cp, nil
}

func (r *PromptRepo) GetByName(_ context.Context, name string) (*models.AIPromptTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.byName(name)
	if p == nil {
		return nil, models.ErrNotFound
	}
	cp := copyPrompt(p)
	return &cp, nil
}

func (r *PromptRepo) List(_ context.Context) ([]models.AIPromptTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.AIPromptTemplate, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, copyPrompt(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *PromptRepo) Names(_ context.Context) ([]models.NameRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.NameRef, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, models.NameRef{ID: p.ID, Name: p.Name, Agent: p.Agent})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *PromptRepo) Update(_ context.Context, id string, patch models.PromptTemplatePatch, attachment *models.Attachment) (*models.AIPromptTemplate, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.Name != nil {
		if other := r.byName(*patch.Name); other != nil && other.ID != id {
			return nil, duplicate("name")
		}
		p.Name = *patch.Name
	}
	if patch.Agent != nil {
		p.Agent = *patch.Agent
	}
	if patch.Prompt != nil {
		p.Prompt = *patch.Prompt
	}
	if patch.AttachFile != nil {
		p.AttachFile = *patch.AttachFile
	}
	if patch.AttachEmail != nil {
		p.AttachEmail = *patch.AttachEmail
	}
	if attachment != nil {
		p.Attachment = cloneAttachment(attachment)
	}
	p.UpdatedAt = r.clock.now()

	cp := copyPrompt(p)
	return &cp, nil
}

func (r *PromptRepo) UpsertByName(_ context.Context, in *models.AIPromptTemplate) (*models.AIPromptTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.clock.now()
	p := r.byName(in.Name)
	if p == nil {
		p = &models.AIPromptTemplate{ID: bson.NewObjectID().Hex(), Name: in.Name, CreatedAt: at}
		r.byID[p.ID] = p
	}
	p.Agent = in.Agent
	p.Prompt = in.Prompt
	p.AttachFile = in.AttachFile
	p.AttachEmail = in.AttachEmail
	if in.Attachment != nil {
		p.Attachment = cloneAttachment(in.Attachment)
	}
	p.UpdatedAt = at

	cp := copyPrompt(p)
	return &cp, nil
}

func (r *PromptRepo) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// UserRepo is an in-memory core.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	clock clock
	byID  map[string]*models.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: map[string]*models.User{}}
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.ProfileImage = cloneAttachment(u.ProfileImage)
	return &cp
}

func (r *UserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return duplicate("email")
		}
	}
	at := r.clock.now()
	u.ID = bson.NewObjectID().Hex()
	u.CreatedAt = at
	u.UpdatedAt = at
	r.byID[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *UserRepo) SetProfileImage(_ context.Context, id string, image *models.Attachment) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.ProfileImage = cloneAttachment(image)
	u.UpdatedAt = r.clock.now()
	return copyUser(u), nil
}
