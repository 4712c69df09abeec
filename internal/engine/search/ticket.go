package search

import "context"

// Outcome describes how a request ended.
type Outcome struct {
	// Applied is true when the page was merged into the session.
	Applied bool
	// Stale is true when the session moved on before the response arrived.
	Stale bool
	Items int
	Err   error
}

// Ticket is the handle of one in-flight page request.
type Ticket struct {
	session uint64
	offset  int
	done    chan struct{}
	outcome Outcome
}

func newTicket(session uint64, offset int) *Ticket {
	return &Ticket{session: session, offset: offset, done: make(chan struct{})}
}

func (t *Ticket) resolve(o Outcome) {
	t.outcome = o
	close(t.done)
}

func (t *Ticket) Session() uint64 { return t.session }
func (t *Ticket) Offset() int     { return t.offset }

// Done is closed once the response has been merged or discarded.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the request completes or ctx ends.
func (t *Ticket) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
