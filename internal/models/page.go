package models

// PageRequest selects a zero-based page of results. Bounds (page >= 0,
// size 1..100) are validated at the API layer; stores trust their callers.
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the row offset of the first element of the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one page of results plus paging metadata.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// NewPage assembles a page from its content and the total row count.
func NewPage[T any](content []T, req PageRequest, total int64) *Page[T] {
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return &Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
