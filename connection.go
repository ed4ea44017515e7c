package crossdb

import (
	"context"
	"sync"
)

// Conn is a connection to a database. It is a sequential resource: every
// operation is queued and executed by a single worker goroutine, so
// completions fire in exact issue order and no two operations on one Conn
// ever run concurrently.
//
// Conn is assumed to be stateful.
type Conn struct {
	cfg      *Config
	backend  Backend
	compiler Compiler

	done chan struct{}

	mu     sync.Mutex // guards queue and closed
	cond   *sync.Cond
	queue  []*operation
	closed bool

	connected uint32
	retained  int32

	hookMu    sync.Mutex
	onRelease func(*Conn)

	closeErr error

	// transaction bookkeeping, worker-goroutine only; savepoints in
	// creation order, oldest first
	inTx       bool
	savepoints []string
}

type operation struct {
	run  func(ctx context.Context) Result
	disp *dispatcher
}

func newConn(cfg *Config, backend Backend) *Conn {
	c := &Conn{
		cfg:      cfg,
		backend:  backend,
		compiler: backend.Compiler(),
		done:     make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.loop()
	return c
}

// loop drains the operation queue in FIFO order. Once the Conn is closed
// the remaining operations still complete, then the backend session is torn
// down.
func (c *Conn) loop() {
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			break
		}
		op := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		res := op.run(context.Background())
		op.disp.dispatch(res)
	}
	if c.IsConnected() {
		if err := c.backend.Close(); err != nil {
			errLog().Error("backend close failed", "backend", c.cfg.Backend, "err", err)
			c.closeErr = err
		}
		c.setDisconnected()
	}
	close(c.done)
}

// enqueue schedules run on the worker. The queue is unbounded; enqueue
// never blocks the calling goroutine. Operations issued after Close
// complete immediately with a ConnectionError; nothing is ever dropped.
func (c *Conn) enqueue(retain bool, cb Callback, run func(ctx context.Context) Result) {
	d := &dispatcher{conn: c, retain: retain, cb: cb}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		d.dispatch(Failure(ConnectionError, "connection closed"))
		return
	}
	c.queue = append(c.queue, &operation{run: run, disp: d})
	c.mu.Unlock()
	c.cond.Signal()
}

// Connect establishes the backend session. Connecting an already-connected
// Conn completes with empty success.
func (c *Conn) Connect(cb Callback) {
	c.enqueue(false, cb, func(ctx context.Context) Result {
		if c.IsConnected() {
			return Success()
		}
		if err := c.backend.Open(ctx); err != nil {
			return failure(ConnectionError, err)
		}
		c.setConnected()
		return Success()
	})
}

// ConnectSync is the synchronous connect variant. The attempt still goes
// through the operation queue, preserving issue order.
func (c *Conn) ConnectSync() error {
	return c.wait(c.Connect).Err()
}

// Close shuts the queue down, lets already-issued operations complete, then
// tears down the backend session. Close is not an async operation; it waits.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrInvalidConn
	}
	c.closed = true
	c.mu.Unlock()
	c.cond.Signal()
	<-c.done
	return c.closeErr
}

// Execute runs a statement that returns no rows, completing with empty
// success (plus affected-row info) through plain dispatch.
func (c *Conn) Execute(q Query, cb Callback) {
	c.ExecuteArgs(q, nil, cb)
}

// ExecuteArgs is Execute with positional parameters.
func (c *Conn) ExecuteArgs(q Query, args []any, cb Callback) {
	c.enqueue(false, cb, func(ctx context.Context) Result {
		return c.exec(ctx, q, args)
	})
}

// ExecuteNamed is Execute with a name-keyed parameter map. The map is
// translated to a positional array before anything reaches the backend; a
// name the compiled query does not know fails the whole operation.
func (c *Conn) ExecuteNamed(q Query, params map[string]any, cb Callback) {
	c.enqueue(false, cb, func(ctx context.Context) Result {
		text, args, berr := bindNamed(c.compiler, q, params)
		if berr != nil {
			return Result{err: berr}
		}
		return c.execText(ctx, text, args)
	})
}

// Query runs a statement whose result is consumed incrementally. The
// completion goes through retaining dispatch: the delivered ResultSet holds
// this Conn until it is closed.
func (c *Conn) Query(q Query, cb Callback) {
	c.QueryArgs(q, nil, cb)
}

// QueryArgs is Query with positional parameters.
func (c *Conn) QueryArgs(q Query, args []any, cb Callback) {
	c.enqueue(true, cb, func(ctx context.Context) Result {
		return c.query(ctx, q, args)
	})
}

// QueryNamed is Query with a name-keyed parameter map.
func (c *Conn) QueryNamed(q Query, params map[string]any, cb Callback) {
	c.enqueue(true, cb, func(ctx context.Context) Result {
		text, args, berr := bindNamed(c.compiler, q, params)
		if berr != nil {
			return Result{err: berr}
		}
		return c.queryText(ctx, text, args)
	})
}

// DescriptionOf renders q to backend-native text. Synchronous; the only
// operation besides ConnectSync that surfaces failure directly.
func (c *Conn) DescriptionOf(q Query) (string, error) {
	compiled, err := c.compiler.Compile(q)
	if err != nil {
		return "", wrapError(SyntaxError, err)
	}
	return compiled.Text, nil
}

func (c *Conn) exec(ctx context.Context, q Query, args []any) Result {
	compiled, err := c.compiler.Compile(q)
	if err != nil {
		return failure(SyntaxError, err)
	}
	return c.execText(ctx, compiled.Text, args)
}

func (c *Conn) execText(ctx context.Context, text string, args []any) Result {
	if !c.IsConnected() {
		return Failure(ConnectionError, "not connected")
	}
	info, err := c.backend.Exec(ctx, text, args)
	if err != nil {
		return failure(ExecutionError, err)
	}
	return successInfo(info)
}

func (c *Conn) query(ctx context.Context, q Query, args []any) Result {
	compiled, err := c.compiler.Compile(q)
	if err != nil {
		return failure(SyntaxError, err)
	}
	return c.queryText(ctx, compiled.Text, args)
}

func (c *Conn) queryText(ctx context.Context, text string, args []any) Result {
	if !c.IsConnected() {
		return Failure(ConnectionError, "not connected")
	}
	cur, err := c.backend.Query(ctx, text, args)
	if err != nil {
		return failure(ExecutionError, err)
	}
	return successRows(newResultSet(cur))
}

// wait issues an async operation and blocks for its single completion.
func (c *Conn) wait(issue func(Callback)) Result {
	ch := make(chan Result, 1)
	issue(func(r Result) { ch <- r })
	return <-ch
}
