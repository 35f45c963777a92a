package roll

import (
	"errors"
	"sync"
	"time"

	"github.com/hazyhaar/electoral-roll/pkg/debounce"
	"github.com/hazyhaar/electoral-roll/pkg/search"
)

// DefaultDelay is the quiet period between the last keystroke and the
// refilter.
const DefaultDelay = 300 * time.Millisecond

// View is what a session currently shows.
type View struct {
	Query  search.Query  `json:"query"`
	Result search.Result `json:"result"`
	Facets search.Facets `json:"facets"`
	Err    string        `json:"error,omitempty"`
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	delay    time.Duration
	clock    debounce.Clock
	pageSize int
	onChange func(View)
}

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.delay = d }
}

// WithClock injects the clock driving the debounce timer.
func WithClock(clk debounce.Clock) SessionOption {
	return func(c *sessionConfig) { c.clock = clk }
}

// WithPageSize sets the initial page size.
func WithPageSize(n int) SessionOption {
	return func(c *sessionConfig) { c.pageSize = n }
}

// OnChange registers a callback that receives every new View. It runs on the
// goroutine that produced the view, outside the session lock.
func OnChange(fn func(View)) SessionOption {
	return func(c *sessionConfig) { c.onChange = fn }
}

// Session is one user's browsing state over a Roll: search text, filters and
// page. Search and filter edits are debounced; page changes apply at once.
type Session struct {
	roll     *Roll
	deb      *debounce.Debouncer
	onChange func(View)

	mu      sync.Mutex
	pending search.Query // edited by the user, applied on the next refilter
	applied search.Query // what view was computed from
	edited  bool         // pending holds a search or filter edit not yet applied
	closed  bool
	view    View
}

// ErrClosed is returned by SetPage after Close.
var ErrClosed = errors.New("session closed")

// NewSession starts a session on page 1 with no search and no filters, and
// computes the initial view synchronously.
func NewSession(r *Roll, opts ...SessionOption) *Session {
	cfg := sessionConfig{
		delay:    DefaultDelay,
		clock:    debounce.RealClock,
		pageSize: search.DefaultPageSize,
	}
	for _, o := range opts {
		o(&cfg)
	}

	q := search.Query{Page: 1, PageSize: cfg.pageSize}
	s := &Session{
		roll:     r,
		onChange: cfg.onChange,
		pending:  q,
		applied:  q,
	}
	s.deb = debounce.New(cfg.delay, s.Refresh, debounce.WithClock(cfg.clock))
	s.view = s.compute(q)
	return s
}

// SetSearch updates the search text. The view changes once typing pauses.
func (s *Session) SetSearch(term string) {
	s.mu.Lock()
	s.pending.Search = term
	s.pending.Page = 1
	s.edited = true
	s.mu.Unlock()
	s.deb.Trigger()
}

// SetFilter sets one filter; an empty value clears it. Debounced like
// SetSearch.
func (s *Session) SetFilter(key, value string) {
	s.mu.Lock()
	f := s.pending.Filters.Merge(nil)
	if value == "" {
		delete(f, key)
	} else {
		f[key] = value
	}
	s.pending.Filters = f
	s.pending.Page = 1
	s.edited = true
	s.mu.Unlock()
	s.deb.Trigger()
}

// ClearFilters removes every filter.
func (s *Session) ClearFilters() {
	s.mu.Lock()
	s.pending.Filters = nil
	s.pending.Page = 1
	s.edited = true
	s.mu.Unlock()
	s.deb.Trigger()
}

// SetSort changes the sort order and applies it at once.
func (s *Session) SetSort(order string) error {
	if err := search.SortVoters(nil, order); err != nil {
		return err
	}
	s.mu.Lock()
	s.pending.Sort = order
	s.applied.Sort = order
	s.mu.Unlock()
	s.Refresh()
	return nil
}

// SetPage moves to page n of the applied query. An out-of-range page leaves
// the session where it was and returns search.ErrPageOutOfRange. A search or
// filter edit still waiting on the debounce keeps its reset to page 1.
func (s *Session) SetPage(n int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	q := s.applied
	q.Page = n
	s.mu.Unlock()

	res, err := s.roll.Query(q)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.applied.Page = n
	if !s.edited {
		s.pending.Page = n
	}
	s.view = View{Query: q, Result: res, Facets: s.roll.Facets()}
	v := s.view
	s.mu.Unlock()
	s.notify(v)
	return nil
}

// NextPage and PrevPage step one page and report whether they moved.
func (s *Session) NextPage() bool { return s.step(1) }

func (s *Session) PrevPage() bool { return s.step(-1) }

func (s *Session) step(delta int) bool {
	s.mu.Lock()
	n := s.applied.Page + delta
	s.mu.Unlock()
	if n < 1 {
		return false
	}
	return s.SetPage(n) == nil
}

// SetPageSize changes the page size and returns to page 1.
func (s *Session) SetPageSize(n int) error {
	if n < 1 {
		return search.ErrInvalidPageSize
	}
	s.mu.Lock()
	s.pending.PageSize = n
	s.pending.Page = 1
	s.mu.Unlock()
	s.Refresh()
	return nil
}

// Refresh applies pending edits now and recomputes the view against the
// roll's current snapshot. The debouncer calls it; reload hooks call it
// directly.
func (s *Session) Refresh() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	q := s.pending
	s.edited = false
	s.mu.Unlock()

	v := s.compute(q)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.applied = v.Query
	if !s.edited {
		s.pending.Page = v.Query.Page
	}
	s.view = v
	s.mu.Unlock()
	s.notify(v)
}

// Flush applies a pending debounced edit immediately.
func (s *Session) Flush() bool {
	return s.deb.Flush()
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Pending reports whether an edit is waiting for the debounce to settle.
func (s *Session) Pending() bool {
	st, _ := s.deb.State()
	return st == debounce.Pending
}

// Close stops the debouncer and freezes the view: later edits, page moves
// and refreshes are ignored. A refresh that had already computed its view
// when Close was called may still hand it to OnChange.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.deb.Stop()
}

// compute runs q, clamping to the last page if the collection shrank under
// the session.
func (s *Session) compute(q search.Query) View {
	res, err := s.roll.Query(q)
	if errors.Is(err, search.ErrPageOutOfRange) && res.TotalPages > 0 {
		q.Page = res.TotalPages
		res, err = s.roll.Query(q)
	}
	v := View{Query: q, Result: res, Facets: s.roll.Facets()}
	if err != nil {
		v.Err = err.Error()
	}
	return v
}

func (s *Session) notify(v View) {
	if s.onChange != nil {
		s.onChange(v)
	}
}
