// Package pool provides a fixed-size connection pool that honors the
// crossdb retention protocol: a connection whose ResultSet is still open is
// never handed out, and checking such a connection in parks it until the
// set is closed instead of recycling it mid-cursor.
package pool

import (
	"context"
	"errors"
	"sync"

	"github.com/crossdb-io/crossdb"
)

var ErrClosed = errors.New("pool: closed")

type Pool struct {
	free chan *crossdb.Conn

	mu     sync.Mutex
	parked map[*crossdb.Conn]bool
	conns  []*crossdb.Conn
	closed bool
}

// New opens and connects size connections for cfg's backend. Failure to
// connect any of them tears the whole pool down.
func New(cfg *crossdb.Config, size int) (*Pool, error) {
	if size <= 0 {
		return nil, errors.New("pool: size must be positive")
	}
	p := &Pool{
		free:   make(chan *crossdb.Conn, size),
		parked: make(map[*crossdb.Conn]bool),
	}
	for i := 0; i < size; i++ {
		c, err := crossdb.Open(cfg)
		if err != nil {
			p.Close()
			return nil, err
		}
		if err := c.ConnectSync(); err != nil {
			c.Close()
			p.Close()
			return nil, err
		}
		c.OnRelease(p.onRelease)
		p.conns = append(p.conns, c)
		p.free <- c
	}
	return p, nil
}

// Checkout blocks until a free, non-retained connection is available or ctx
// is done.
func (p *Pool) Checkout(ctx context.Context) (*crossdb.Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	select {
	case c, ok := <-p.free:
		if !ok {
			return nil, ErrClosed
		}
		CheckoutsTotal.Inc()
		InUse.Inc()
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Checkin returns a connection. A connection still retained by an open
// ResultSet is parked; the retention release hook re-enqueues it once the
// set is closed.
func (p *Pool) Checkin(c *crossdb.Conn) {
	InUse.Dec()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		c.Close()
		return
	}
	if c.Retained() {
		p.parked[c] = true
		p.mu.Unlock()
		Retained.Inc()
		ParksTotal.Inc()
		return
	}
	p.mu.Unlock()
	p.free <- c
}

// onRelease runs when the last open ResultSet of a connection closes.
func (p *Pool) onRelease(c *crossdb.Conn) {
	p.mu.Lock()
	if !p.parked[c] {
		p.mu.Unlock()
		return
	}
	delete(p.parked, c)
	closed := p.closed
	p.mu.Unlock()
	Retained.Dec()
	if closed {
		c.Close()
		return
	}
	p.free <- c
}

// Exec checks a connection out, runs q with positional args, and checks it
// back in.
func (p *Pool) Exec(ctx context.Context, q crossdb.Query, args ...any) (crossdb.ExecInfo, error) {
	c, err := p.Checkout(ctx)
	if err != nil {
		return crossdb.ExecInfo{}, err
	}
	defer p.Checkin(c)
	res := complete(func(cb crossdb.Callback) { c.ExecuteArgs(q, args, cb) })
	return res.Info(), res.Err()
}

// ExecNamed is Exec with a name-keyed parameter map.
func (p *Pool) ExecNamed(ctx context.Context, q crossdb.Query, params map[string]any) (crossdb.ExecInfo, error) {
	c, err := p.Checkout(ctx)
	if err != nil {
		return crossdb.ExecInfo{}, err
	}
	defer p.Checkin(c)
	res := complete(func(cb crossdb.Callback) { c.ExecuteNamed(q, params, cb) })
	return res.Info(), res.Err()
}

// Query is the scoped-acquisition read form: the ResultSet is passed to fn
// and closed on the way out no matter what, so the connection's retention is
// always released before it is checked back in.
func (p *Pool) Query(ctx context.Context, q crossdb.Query, fn func(*crossdb.ResultSet) error) error {
	return p.query(ctx, func(c *crossdb.Conn, cb crossdb.Callback) { c.Query(q, cb) }, fn)
}

// QueryNamed is Query with a name-keyed parameter map.
func (p *Pool) QueryNamed(ctx context.Context, q crossdb.Query, params map[string]any, fn func(*crossdb.ResultSet) error) error {
	return p.query(ctx, func(c *crossdb.Conn, cb crossdb.Callback) { c.QueryNamed(q, params, cb) }, fn)
}

func (p *Pool) query(ctx context.Context, issue func(*crossdb.Conn, crossdb.Callback), fn func(*crossdb.ResultSet) error) error {
	c, err := p.Checkout(ctx)
	if err != nil {
		return err
	}
	defer p.Checkin(c)
	res := complete(func(cb crossdb.Callback) { issue(c, cb) })
	if err := res.Err(); err != nil {
		return err
	}
	rs := res.Rows()
	if rs == nil {
		return nil
	}
	defer rs.Close()
	return fn(rs)
}

// Close closes every idle connection and marks the pool closed. Connections
// currently checked out or parked are closed as they come back.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	p.mu.Unlock()

	var first error
	for {
		select {
		case c := <-p.free:
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		default:
			return first
		}
	}
}

func complete(issue func(crossdb.Callback)) crossdb.Result {
	ch := make(chan crossdb.Result, 1)
	issue(func(r crossdb.Result) { ch <- r })
	return <-ch
}
