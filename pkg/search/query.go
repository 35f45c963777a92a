package search

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/electoral-roll/pkg/voter"
)

// Sort orders accepted by Query.Sort.
const (
	SortNone   = ""
	SortName   = "name"
	SortSerial = "serial"
)

// ErrUnknownSort is returned for a Sort value other than the Sort* constants.
var ErrUnknownSort = errors.New("unknown sort order")

// Query is one search/filter/paginate request.
type Query struct {
	Search   string  `json:"search"`
	Filters  Filters `json:"filters,omitempty"`
	Sort     string  `json:"sort,omitempty"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Result is a rendered page plus counts.
type Result struct {
	Page
	Shown int `json:"shown"`
}

// Select filters and sorts all without paginating. Export uses it to get
// every matching row.
func Select(all []voter.Voter, q Query) ([]voter.Voter, error) {
	matched := Filter(all, q.Search, q.Filters)
	if err := SortVoters(matched, q.Sort); err != nil {
		return nil, err
	}
	return matched, nil
}

// Run filters, sorts and paginates all. Page and PageSize default to 1 and
// DefaultPageSize when zero. On ErrPageOutOfRange the returned Result still
// carries the counts so callers can clamp.
func Run(all []voter.Voter, q Query) (Result, error) {
	matched, err := Select(all, q)
	if err != nil {
		return Result{}, err
	}
	page, size := q.Page, q.PageSize
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	p, err := Paginate(matched, page, size)
	return Result{Page: p, Shown: p.Shown()}, err
}

// SortVoters sorts vs in place, stably, by the given order. SortNone keeps
// store order.
func SortVoters(vs []voter.Voter, order string) error {
	switch order {
	case SortNone:
		return nil
	case SortName:
		sort.SliceStable(vs, func(i, j int) bool {
			return strings.ToLower(vs[i].Name) < strings.ToLower(vs[j].Name)
		})
	case SortSerial:
		sort.SliceStable(vs, func(i, j int) bool {
			return serialLess(vs[i].SerialNumber, vs[j].SerialNumber)
		})
	default:
		return fmt.Errorf("%w %q", ErrUnknownSort, order)
	}
	return nil
}

// serialLess compares numerically when both serials are integers; numbers
// sort before free text.
func serialLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}
