package crossdb

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyCursor struct{ closed bool }

func (c *emptyCursor) Columns() []string    { return []string{"a"} }
func (c *emptyCursor) Next(dest []any) error { return io.EOF }
func (c *emptyCursor) Close() error          { c.closed = true; return nil }

func TestDispatcherFiresExactlyOnce(t *testing.T) {
	c := &Conn{cfg: &Config{Backend: "test"}}
	count := 0
	d := &dispatcher{conn: c, cb: func(Result) { count++ }}

	d.dispatch(Success())
	d.dispatch(Success())
	d.dispatch(Failure(ExecutionError, "late"))

	assert.Equal(t, 1, count)
}

func TestRetainingDispatchAttachesBeforeCallback(t *testing.T) {
	c := &Conn{cfg: &Config{Backend: "test"}}
	rs := newResultSet(&emptyCursor{})

	var seen *Conn
	d := &dispatcher{conn: c, retain: true, cb: func(res Result) {
		seen = res.Rows().Connection()
	}}
	d.dispatch(successRows(rs))

	assert.Same(t, c, seen, "reference must be visible inside the callback")
	assert.True(t, c.Retained())
	require.NoError(t, rs.Close())
	assert.False(t, c.Retained())
}

func TestPlainDispatchNeverAttaches(t *testing.T) {
	c := &Conn{cfg: &Config{Backend: "test"}}
	rs := newResultSet(&emptyCursor{})

	d := &dispatcher{conn: c, retain: false, cb: func(Result) {}}
	d.dispatch(successRows(rs))

	assert.Nil(t, rs.Connection())
	assert.False(t, c.Retained())
}

func TestRetainingDispatchWithoutRowsIsPlain(t *testing.T) {
	c := &Conn{cfg: &Config{Backend: "test"}}
	fired := false
	d := &dispatcher{conn: c, retain: true, cb: func(Result) { fired = true }}
	d.dispatch(Failure(ExecutionError, "no rows here"))

	assert.True(t, fired)
	assert.False(t, c.Retained())
}
