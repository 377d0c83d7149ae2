// Package paginator pages in-memory result sets for list endpoints.
package paginator

const (
	DefaultPage  = 1
	DefaultLimit = 15
	MaxLimit     = 100
)

// Query is the page request bound from ?page=&limit=.
type Query struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Adjust clamps the query to a valid page and limit.
func (q *Query) Adjust() {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	switch {
	case q.Limit < 1:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
}

// Offset is the number of items before the requested page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Paginator describes one returned page.
type Paginator struct {
	Total       int  `json:"total"`
	Count       int  `json:"count"`
	PerPage     int  `json:"per_page"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// Page returns the items of the requested page and its metadata. A page
// past the end is empty, not an error.
func Page[T any](items []T, q Query) ([]T, Paginator) {
	q.Adjust()
	total := len(items)

	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)
	page := items[start:end]

	pages := 0
	if total > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return page, Paginator{
		Total:       total,
		Count:       len(page),
		PerPage:     q.Limit,
		CurrentPage: q.Page,
		TotalPages:  pages,
		HasNext:     q.Page < pages,
		HasPrev:     q.Page > 1,
	}
}
