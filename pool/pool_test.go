package pool

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossdb-io/crossdb"
)

type fakeCompiler struct{}

func (fakeCompiler) Compile(q crossdb.Query) (crossdb.Compiled, error) {
	return crossdb.Compiled{
		Text:   "SELECT ?",
		Params: map[string][]int{"n": {1}},
		Slots:  1,
	}, nil
}

type fakeBackend struct {
	mu    sync.Mutex
	open  bool
	execs int
}

func (b *fakeBackend) Open(ctx context.Context) error {
	b.mu.Lock()
	b.open = true
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	b.open = false
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *fakeBackend) Compiler() crossdb.Compiler { return fakeCompiler{} }

func (b *fakeBackend) Exec(ctx context.Context, text string, args []any) (crossdb.ExecInfo, error) {
	b.mu.Lock()
	b.execs++
	b.mu.Unlock()
	return crossdb.ExecInfo{RowsAffected: 1}, nil
}

func (b *fakeBackend) Query(ctx context.Context, text string, args []any) (crossdb.Cursor, error) {
	return &fakeCursor{rows: [][]any{{int64(42)}}}, nil
}

func (b *fakeBackend) Prepare(ctx context.Context, text string) (crossdb.BackendStmt, error) {
	return nil, errors.New("fake backend: prepare not supported")
}

func (b *fakeBackend) Begin(ctx context.Context) error    { return nil }
func (b *fakeBackend) Commit(ctx context.Context) error   { return nil }
func (b *fakeBackend) Rollback(ctx context.Context) error { return nil }
func (b *fakeBackend) Savepoint(ctx context.Context, name string) error        { return nil }
func (b *fakeBackend) RollbackTo(ctx context.Context, name string) error       { return nil }
func (b *fakeBackend) ReleaseSavepoint(ctx context.Context, name string) error { return nil }

type fakeCursor struct {
	rows   [][]any
	pos    int
	closed bool
}

func (c *fakeCursor) Columns() []string { return []string{"n"} }

func (c *fakeCursor) Next(dest []any) error {
	if c.closed || c.pos >= len(c.rows) {
		return io.EOF
	}
	copy(dest, c.rows[c.pos])
	c.pos++
	return nil
}

func (c *fakeCursor) Close() error {
	c.closed = true
	return nil
}

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	name := "pooltest-" + t.Name()
	crossdb.Register(name, func(cfg *crossdb.Config) (crossdb.Backend, error) {
		return &fakeBackend{}, nil
	})
	t.Cleanup(func() { crossdb.Deregister(name) })

	p, err := New(&crossdb.Config{Backend: name}, size)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func awaitResult(issue func(crossdb.Callback)) crossdb.Result {
	ch := make(chan crossdb.Result, 1)
	issue(func(r crossdb.Result) { ch <- r })
	return <-ch
}

func TestCheckoutCheckin(t *testing.T) {
	p := newTestPool(t, 2)

	c1, err := p.Checkout(context.Background())
	require.NoError(t, err)
	c2, err := p.Checkout(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)

	// pool exhausted: third checkout blocks until a checkin
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Checkout(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Checkin(c1)
	c3, err := p.Checkout(context.Background())
	require.NoError(t, err)
	assert.Same(t, c1, c3)
	p.Checkin(c2)
	p.Checkin(c3)
}

func TestRetainedConnIsNotReused(t *testing.T) {
	p := newTestPool(t, 1)
	parksBefore := testutil.ToFloat64(ParksTotal)

	c, err := p.Checkout(context.Background())
	require.NoError(t, err)

	res := awaitResult(func(cb crossdb.Callback) { c.Query(crossdb.SQL("SELECT n FROM t"), cb) })
	require.NoError(t, res.Err())
	rs := res.Rows()
	require.True(t, c.Retained())

	// checking in while the result set is open parks the connection
	p.Checkin(c)
	assert.Equal(t, parksBefore+1, testutil.ToFloat64(ParksTotal))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Checkout(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "retained connection must not be handed out")

	// closing the set releases the retention and frees the connection
	require.NoError(t, rs.Close())
	c2, err := p.Checkout(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, c2)
	p.Checkin(c2)
}

func TestScopedQueryAlwaysReleases(t *testing.T) {
	p := newTestPool(t, 1)

	var got int64
	err := p.Query(context.Background(), crossdb.SQL("SELECT n FROM t"), func(rs *crossdb.ResultSet) error {
		row := make([]any, 1)
		if err := rs.Next(row); err != nil {
			return err
		}
		got = row[0].(int64)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	// the connection came back even though fn never closed the set
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := p.Checkout(ctx)
	require.NoError(t, err)
	assert.False(t, c.Retained())
	p.Checkin(c)
}

func TestExecConvenience(t *testing.T) {
	p := newTestPool(t, 1)

	info, err := p.Exec(context.Background(), crossdb.SQL("DELETE FROM t"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.RowsAffected)

	info, err = p.ExecNamed(context.Background(), crossdb.SQL("ignored"), map[string]any{"n": 7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.RowsAffected)

	// binding failure surfaces as an error without touching the pool state
	_, err = p.ExecNamed(context.Background(), crossdb.SQL("ignored"), map[string]any{"wrong": 7})
	require.Error(t, err)

	c, err := p.Checkout(context.Background())
	require.NoError(t, err)
	p.Checkin(c)
}

func TestPoolClose(t *testing.T) {
	name := "poolclose"
	crossdb.Register(name, func(cfg *crossdb.Config) (crossdb.Backend, error) {
		return &fakeBackend{}, nil
	})
	defer crossdb.Deregister(name)

	p, err := New(&crossdb.Config{Backend: name}, 2)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Close(), ErrClosed)
}
