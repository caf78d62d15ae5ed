package pagination

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit and skip+limit inside int range.
	MaxPage = math.MaxInt / MaxLimit
)

// Meta describes where a page sits inside a result set.
type Meta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Skip        int   `json:"skip"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
	NextPage    *int  `json:"next_page"`
	PrevPage    *int  `json:"prev_page"`
	From        int   `json:"from"`
	To          int   `json:"to"`
}

// Normalize applies defaults and caps to raw page/limit values.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset returns the number of rows to skip for a normalized page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// NewMeta builds the metadata for page/limit over total rows.
// page and limit are normalized first.
func NewMeta(page, limit int, total int64) Meta {
	page, limit = Normalize(page, limit)
	skip := Offset(page, limit)

	lastPage := int((total + int64(limit) - 1) / int64(limit))

	m := Meta{
		CurrentPage: page,
		PerPage:     limit,
		Skip:        skip,
		Total:       total,
		LastPage:    lastPage,
	}
	if page < lastPage {
		next := page + 1
		m.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		m.PrevPage = &prev
	}

	// Past the end (or empty set): from/to stay zero.
	if int64(skip) < total {
		m.From = skip + 1
		m.To = skip + limit
		if int64(m.To) > total {
			m.To = int(total)
		}
	}
	return m
}
