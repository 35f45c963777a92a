package search

import (
	"errors"

	"github.com/hazyhaar/electoral-roll/pkg/voter"
)

// DefaultPageSize is used when a query leaves PageSize at zero.
const DefaultPageSize = 50

var (
	// ErrPageOutOfRange is returned for a page outside [1, TotalPages].
	// Callers keep their current page and carry on.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrInvalidPageSize is returned for a page size below 1.
	ErrInvalidPageSize = errors.New("invalid page size")
)

// Page is one slice of a filtered collection.
type Page struct {
	Items      []voter.Voter `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalCount int           `json:"totalCount"`
	TotalPages int           `json:"totalPages"`
}

// Shown is the number of items on this page.
func (p Page) Shown() int { return len(p.Items) }

// TotalPages returns ceil(total/size).
func TotalPages(total, size int) int {
	if size < 1 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate returns items [(page-1)*size, page*size) clipped to the slice.
// It never clamps: a page outside [1, TotalPages] fails with
// ErrPageOutOfRange, except page 1 of an empty collection which is an empty
// page.
func Paginate(items []voter.Voter, page, size int) (Page, error) {
	if size < 1 {
		return Page{}, ErrInvalidPageSize
	}
	total := len(items)
	pages := TotalPages(total, size)
	p := Page{
		Page:       page,
		PageSize:   size,
		TotalCount: total,
		TotalPages: pages,
	}
	if pages == 0 && page == 1 {
		p.Items = []voter.Voter{}
		return p, nil
	}
	if page < 1 || page > pages {
		return p, ErrPageOutOfRange
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	p.Items = items[start:end:end]
	return p, nil
}
