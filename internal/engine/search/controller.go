package search

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"sync"

	"github.com/rendis/bioconnect/internal/engine/agencebio"
	"github.com/rendis/bioconnect/internal/model"
)

const DefaultPageSize = 20

var (
	// ErrBusy is returned when a session is started while a page is in flight.
	ErrBusy = errors.New("search: a request is already in flight")
	// ErrNoSession is returned by Retry before any session was started.
	ErrNoSession = errors.New("search: no active session")
	// ErrNothingToRetry is returned by Retry when the last request succeeded.
	ErrNothingToRetry = errors.New("search: last request did not fail")
)

// Searcher fetches one page from the directory. *agencebio.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, r agencebio.Request) (*agencebio.Page, error)
}

// FavoriteChecker reports favorite membership. *favorites.Store satisfies it.
type FavoriteChecker interface {
	IsFavorite(id int) bool
}

type Options struct {
	PageSize int
	Logger   *log.Logger
}

// State is a snapshot of the controller. Results is a copy. Active is
// false before the first session and after EndSession.
type State struct {
	Session  uint64
	Active   bool
	Query    string
	Filters  model.FilterSet
	Origin   *model.Coordinates
	Results  []model.Operator
	PageSize int
	Offset   int
	Total    int
	HasMore  bool
	Loading  bool
	Err      error
}

// Entry is a result decorated with its favorite flag.
type Entry struct {
	Operator model.Operator
	Favorite bool
}

// Controller owns one search session at a time: query, filters, origin,
// the accumulated pages and the loading/error/hasMore flags. At most one
// request is outstanding; responses that belong to an older session are
// dropped.
type Controller struct {
	client   Searcher
	logger   *log.Logger
	pageSize int

	mu       sync.Mutex
	query    string
	filters  model.FilterSet
	defaults model.FilterSet
	origin   *model.Coordinates
	results  []model.Operator
	total    int
	lastPage int
	hasMore  bool
	loading  bool
	err      error
	session  uint64
	started  bool
	cancel   context.CancelFunc
}

func New(client Searcher, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Controller{
		client:   client,
		logger:   logger,
		pageSize: opts.PageSize,
		filters:  model.NewFilterSet(),
		defaults: model.NewFilterSet(),
	}
}

// UseDefaults sets the filters a session starts with when none are given.
func (c *Controller) UseDefaults(p model.Preferences) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults = p.Filters()
}

// SetQuery records the query text for the next session without issuing a request.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = query
}

// SetLocation changes the origin used by subsequent requests. It does not
// issue a request; the caller decides whether to restart the session.
func (c *Controller) SetLocation(origin model.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = &origin
}

func (c *Controller) ClearLocation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = nil
}

// StartSession resets the accumulated results and requests page one.
// Nil filters select the defaults; a nil origin keeps the current location.
func (c *Controller) StartSession(ctx context.Context, query string, filters model.FilterSet, origin *model.Coordinates) (*Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loading {
		return nil, ErrBusy
	}

	if filters == nil {
		filters = c.defaults
	}
	c.query = query
	c.filters = filters.Clone()
	if origin != nil {
		o := *origin
		c.origin = &o
	}
	c.results = []model.Operator{}
	c.total = 0
	c.lastPage = 0
	c.hasMore = false
	c.err = nil
	c.session++
	c.started = true

	c.logger.Printf("SEARCH session=%d query=%q filters=%s located=%t", c.session, c.query, c.filters, c.origin != nil)
	return c.issue(ctx, 0), nil
}

// ApplyFilters replaces the filter set and restarts paging from zero with
// the current query and origin.
func (c *Controller) ApplyFilters(ctx context.Context, filters model.FilterSet) (*Ticket, error) {
	c.mu.Lock()
	query := c.query
	c.mu.Unlock()

	if filters == nil {
		filters = model.NewFilterSet()
	}
	return c.StartSession(ctx, query, filters, nil)
}

// LoadNextPage requests the page after the accumulated results. It does
// nothing and returns false unless more results exist and no request is in flight.
func (c *Controller) LoadNextPage(ctx context.Context) (*Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.loading || !c.hasMore {
		return nil, false
	}
	return c.issue(ctx, len(c.results)), true
}

// Retry re-requests the offset whose request failed. Failed pages are
// never retried automatically.
func (c *Controller) Retry(ctx context.Context) (*Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.loading:
		return nil, ErrBusy
	case !c.started:
		return nil, ErrNoSession
	case c.err == nil:
		return nil, ErrNothingToRetry
	}
	c.logger.Printf("SEARCH retry session=%d debut=%d", c.session, len(c.results))
	return c.issue(ctx, len(c.results)), nil
}

// EndSession discards the session. A request still in flight is cancelled
// and its response, if any, is ignored.
func (c *Controller) EndSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.session++
	c.started = false
	c.loading = false
	c.results = nil
	c.total = 0
	c.lastPage = 0
	c.hasMore = false
	c.err = nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var origin *model.Coordinates
	if c.origin != nil {
		o := *c.origin
		origin = &o
	}
	return State{
		Session:  c.session,
		Active:   c.started,
		Query:    c.query,
		Filters:  c.filters.Clone(),
		Origin:   origin,
		Results:  slices.Clone(c.results),
		PageSize: c.pageSize,
		Offset:   len(c.results),
		Total:    c.total,
		HasMore:  c.hasMore,
		Loading:  c.loading,
		Err:      c.err,
	}
}

// Decorate pairs each accumulated result with its favorite flag.
func (c *Controller) Decorate(favs FavoriteChecker) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]Entry, len(c.results))
	for i, op := range c.results {
		entries[i] = Entry{Operator: op, Favorite: favs != nil && favs.IsFavorite(op.ID)}
	}
	return entries
}

// issue must be called with c.mu held.
func (c *Controller) issue(ctx context.Context, offset int) *Ticket {
	reqCtx, cancel := context.WithCancel(ctx)

	var origin *model.Coordinates
	if c.origin != nil {
		o := *c.origin
		origin = &o
	}
	req := agencebio.Request{
		Query:   c.query,
		Filters: c.filters.Clone(),
		Origin:  origin,
		Limit:   c.pageSize,
		Offset:  offset,
	}

	c.loading = true
	c.err = nil
	c.cancel = cancel

	t := newTicket(c.session, offset)
	c.logger.Printf("SEARCH request session=%d debut=%d nb=%d", c.session, offset, c.pageSize)

	go func() {
		page, err := c.client.Search(reqCtx, req)
		cancel()
		t.resolve(c.complete(t.session, req, page, err))
	}()
	return t
}

func (c *Controller) complete(session uint64, req agencebio.Request, page *agencebio.Page, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session || req.Offset != len(c.results) {
		c.logger.Printf("SEARCH stale response dropped session=%d current=%d debut=%d", session, c.session, req.Offset)
		return Outcome{Stale: true}
	}

	c.loading = false
	c.cancel = nil

	if err != nil {
		c.err = err
		c.logger.Printf("SEARCH failed session=%d debut=%d err=%v", session, req.Offset, err)
		return Outcome{Err: err}
	}

	if req.Offset == 0 {
		c.results = slices.Clone(page.Items)
		if c.results == nil {
			c.results = []model.Operator{}
		}
	} else {
		c.results = append(c.results, page.Items...)
	}

	c.lastPage = len(page.Items)
	c.total = page.Total
	if c.total < len(c.results) {
		c.logger.Printf("SEARCH reported total clamped session=%d nbTotal=%d accumulated=%d", session, page.Total, len(c.results))
		c.total = len(c.results)
	}
	// A short page ends the session even when the reported total says otherwise.
	c.hasMore = len(c.results) < c.total && c.lastPage == req.Limit

	c.logger.Printf("SEARCH page session=%d debut=%d items=%d accumulated=%d total=%d has_more=%t",
		session, req.Offset, len(page.Items), len(c.results), c.total, c.hasMore)
	return Outcome{Applied: true, Items: len(page.Items)}
}
