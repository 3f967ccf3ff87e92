package models

import "time"

// SortOrder is 1 for ascending, -1 for descending.
type SortOrder int

const (
	SortAsc  SortOrder = 1
	SortDesc SortOrder = -1
)

// TemplateQuery drives template search. Empty strings and nil dates impose
// no constraint.
type TemplateQuery struct {
	Name      string
	Subject   string
	Content   string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortOrder SortOrder
	Page      int
	Limit     int
}

// Skip returns the number of records before the requested page.
func (q TemplateQuery) Skip() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Pagination describes one page of a search result.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// NewPagination computes page metadata for returned records out of total.
func NewPagination(total int64, page, limit, returned int) Pagination {
	p := Pagination{Total: total, Page: page, Limit: limit}
	if limit > 0 {
		p.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	skip := 0
	if page > 1 {
		skip = (page - 1) * limit
	}
	p.HasMore = int64(skip+returned) < total
	return p
}

// TemplatePage is a search result.
type TemplatePage struct {
	Templates  []Template `json:"templates"`
	Pagination Pagination `json:"pagination"`
}

// TemplateActivity is a recently updated template.
type TemplateActivity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TemplateStats is the overview aggregate.
type TemplateStats struct {
	TotalTemplates           int64              `json:"totalTemplates"`
	TemplatesWithAttachments int64              `json:"templatesWithAttachments"`
	AverageContentLength     int64              `json:"averageContentLength"`
	RecentActivity           []TemplateActivity `json:"recentActivity"`
}
