package crossdb

import (
	"io"
	"sync"
)

// ResultSet is an iterator over an executed query's results: an open
// server-side cursor plus the back-reference to the connection that produced
// it. The reference is set by retaining dispatch before the caller's
// callback fires and is cleared only by Close; until then the connection
// counts as reserved and a pool must not hand it out again.
type ResultSet struct {
	cur  Cursor
	cols []string

	mu     sync.Mutex
	conn   *Conn
	closed bool
}

func newResultSet(cur Cursor) *ResultSet {
	return &ResultSet{
		cur:  cur,
		cols: cur.Columns(),
	}
}

// Columns returns the names of the columns. The width of every row equals
// the length of this slice.
func (rs *ResultSet) Columns() []string {
	return rs.cols
}

// Next populates dest with the next row. dest must be len(Columns()) wide.
// Next returns io.EOF when the stream is drained. Draining does not release
// the connection; only Close does.
func (rs *ResultSet) Next(dest []any) error {
	rs.mu.Lock()
	closed := rs.closed
	rs.mu.Unlock()
	if closed {
		return io.EOF
	}
	return rs.cur.Next(dest)
}

// Connection returns the producing connection while the set is open, nil
// after Close or for a set delivered through plain dispatch.
func (rs *ResultSet) Connection() *Conn {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.conn
}

// Close releases the cursor's server-side state and clears the connection
// back-reference, dropping the retention the producing operation took.
// Close is idempotent.
func (rs *ResultSet) Close() error {
	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return nil
	}
	rs.closed = true
	conn := rs.conn
	rs.conn = nil
	rs.mu.Unlock()

	err := rs.cur.Close()
	if conn != nil {
		conn.releaseRetention()
	}
	return err
}

// attach installs the connection back-reference. Called by retaining
// dispatch only, before the completion callback runs.
func (rs *ResultSet) attach(c *Conn) {
	rs.mu.Lock()
	rs.conn = c
	rs.mu.Unlock()
}
