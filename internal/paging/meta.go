package paging

// Meta describes where a page sits in the full result set.
type Meta struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// NewMeta computes page metadata for total records under p.
func NewMeta(p Params, total int64) Meta {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return Meta{
		Total:       total,
		Page:        p.Page,
		Limit:       limit,
		TotalPages:  pages,
		HasNext:     p.Page < pages-1,
		HasPrevious: p.Page > 0,
	}
}

// Page is one page of a listing plus its metadata.
type Page[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

// NewPage wraps items, substituting an empty slice for nil so the JSON is
// always an array.
func NewPage[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return Page[T]{Items: items, Meta: NewMeta(p, total)}
}
