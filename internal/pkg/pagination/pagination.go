// internal/pkg/pagination/pagination.go
package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params are the page selectors accepted by list endpoints
type Params struct {
	Page  int `form:"page,default=1" json:"page"`
	Limit int `form:"limit,default=20" json:"limit"`
}

// New builds normalized params
func New(page, limit int) Params {
	return Params{Page: page, Limit: limit}.Normalize()
}

// Normalize clamps the page to >= 1 and the limit to [1, MaxLimit]
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows to skip
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Build calculates pagination info for total rows
func Build(p Params, total int64) Pagination {
	p = p.Normalize()
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
