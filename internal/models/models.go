package models

import (
	"time"
)

// Attachment describes a stored file owned by a record. Filename is the
// client-supplied name, Path is the storage location returned by the
// attachment store.
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Mimetype string `json:"mimetype"`
}

// Complete reports whether all three fields are populated.
func (a *Attachment) Complete() bool {
	return a != nil && a.Filename != "" && a.Path != "" && a.Mimetype != ""
}

// ContactType classifies a contact.
type ContactType string

const (
	ContactTypeAgent  ContactType = "agent"
	ContactTypeClient ContactType = "client"
	ContactTypeVendor ContactType = "vendor"
	ContactTypeOther  ContactType = "other"
)

// Valid reports whether t is one of the known contact types.
func (t ContactType) Valid() bool {
	switch t {
	case ContactTypeAgent, ContactTypeClient, ContactTypeVendor, ContactTypeOther:
		return true
	}
	return false
}

// Contact is an address book entry keyed by email.
type Contact struct {
	ID          string      `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phoneNumber,omitempty"`
	Note        string      `json:"note,omitempty"`
	CompanyName string      `json:"companyName,omitempty"`
	WebSite     string      `json:"webSite,omitempty"`
	Type        ContactType `json:"type"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ContactInput carries the fields of an upsert. Optional fields left nil
// are not touched on an existing contact.
type ContactInput struct {
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Email       string       `json:"email"`
	PhoneNumber *string      `json:"phoneNumber,omitempty"`
	Note        *string      `json:"note,omitempty"`
	CompanyName *string      `json:"companyName,omitempty"`
	WebSite     *string      `json:"webSite,omitempty"`
	Type        *ContactType `json:"type,omitempty"`
	IsActive    *bool        `json:"isActive,omitempty"`
}

// ContactExport is the flat projection used by the export endpoint.
type ContactExport struct {
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phoneNumber"`
	Note        string      `json:"note"`
	CompanyName string      `json:"companyName"`
	WebSite     string      `json:"webSite"`
	Type        ContactType `json:"type"`
}

// BulkResult summarises a bulk upsert.
type BulkResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
	Upserted int64 `json:"upserted"`
}

// Template is an email template keyed by name.
type Template struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Subject    string      `json:"subject"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// GetAttachment returns the template attachment, if any.
func (t Template) GetAttachment() *Attachment { return t.Attachment }

// TemplatePatch is a partial template update.
type TemplatePatch struct {
	Name    *string
	Subject *string
	Content *string
}

// AIPromptTemplate is a prompt definition for an agent, keyed by name.
type AIPromptTemplate struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Agent       string      `json:"agent"`
	Prompt      string      `json:"prompt"`
	AttachFile  bool        `json:"attachFile"`
	AttachEmail bool        `json:"attachEmail"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// GetAttachment returns the prompt attachment, if any.
func (p AIPromptTemplate) GetAttachment() *Attachment { return p.Attachment }

// PromptTemplatePatch is a partial AI prompt template update.
type PromptTemplatePatch struct {
	Name        *string
	Agent       *string
	Prompt      *string
	AttachFile  *bool
	AttachEmail *bool
}

// NameRef is the light listing entry returned by the names endpoints.
// Agent is only set for AI prompt templates.
type NameRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Agent string `json:"agent,omitempty"`
}

// User is an account holder. PasswordHash never leaves the service layer.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	ProfileImage *Attachment `json:"profileImage,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
