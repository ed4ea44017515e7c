package crossdb

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Stmt is a prepared statement: a backend-retained handle compiled once and
// executed any number of times until released. It is bound to the Conn that
// prepared it and shares that Conn's FIFO queue.
type Stmt struct {
	id       uuid.UUID
	conn     *Conn
	compiled Compiled
	backend  BackendStmt
	released uint32
}

// Prepare compiles and registers q server-side. The completion's Result
// carries the handle (Result.Statement) on success, or a SyntaxError when
// the query does not compile or the backend rejects it.
func (c *Conn) Prepare(q Query, cb Callback) {
	c.enqueue(false, cb, func(ctx context.Context) Result {
		if !c.IsConnected() {
			return Failure(ConnectionError, "not connected")
		}
		compiled, err := c.compiler.Compile(q)
		if err != nil {
			return failure(SyntaxError, err)
		}
		bs, err := c.backend.Prepare(ctx, compiled.Text)
		if err != nil {
			return failure(SyntaxError, err)
		}
		return successStmt(&Stmt{
			id:       uuid.New(),
			conn:     c,
			compiled: compiled,
			backend:  bs,
		})
	})
}

// ID identifies the handle.
func (s *Stmt) ID() uuid.UUID { return s.id }

// Released reports whether the handle has been invalidated.
func (s *Stmt) Released() bool {
	return atomic.LoadUint32(&s.released) != 0
}

// Exec runs the statement without parameters through plain dispatch.
func (s *Stmt) Exec(cb Callback) {
	s.ExecArgs(nil, cb)
}

// ExecArgs runs the statement with positional parameters.
func (s *Stmt) ExecArgs(args []any, cb Callback) {
	s.conn.enqueue(false, cb, func(ctx context.Context) Result {
		return s.exec(ctx, args)
	})
}

// ExecNamed runs the statement with a name-keyed map, translated against
// the mapping captured at prepare time.
func (s *Stmt) ExecNamed(params map[string]any, cb Callback) {
	s.conn.enqueue(false, cb, func(ctx context.Context) Result {
		args, berr := bindCompiled(s.compiled, params)
		if berr != nil {
			return Result{err: berr}
		}
		return s.exec(ctx, args)
	})
}

// Query runs the statement through retaining dispatch.
func (s *Stmt) Query(cb Callback) {
	s.QueryArgs(nil, cb)
}

// QueryArgs runs the statement with positional parameters, retaining.
func (s *Stmt) QueryArgs(args []any, cb Callback) {
	s.conn.enqueue(true, cb, func(ctx context.Context) Result {
		return s.query(ctx, args)
	})
}

// QueryNamed runs the statement with a name-keyed map, retaining.
func (s *Stmt) QueryNamed(params map[string]any, cb Callback) {
	s.conn.enqueue(true, cb, func(ctx context.Context) Result {
		args, berr := bindCompiled(s.compiled, params)
		if berr != nil {
			return Result{err: berr}
		}
		return s.query(ctx, args)
	})
}

// Release invalidates the handle and frees its server-side state. Any
// execution issued after Release completes with a HandleError.
func (s *Stmt) Release(cb Callback) {
	s.conn.enqueue(false, cb, func(ctx context.Context) Result {
		if !atomic.CompareAndSwapUint32(&s.released, 0, 1) {
			return Failure(HandleError, "statement already released")
		}
		if err := s.backend.Close(); err != nil {
			return failure(ExecutionError, err)
		}
		return Success()
	})
}

func (s *Stmt) exec(ctx context.Context, args []any) Result {
	if s.Released() {
		return Failure(HandleError, "statement has been released")
	}
	if !s.conn.IsConnected() {
		return Failure(ConnectionError, "not connected")
	}
	info, err := s.backend.Exec(ctx, args)
	if err != nil {
		return failure(ExecutionError, err)
	}
	return successInfo(info)
}

func (s *Stmt) query(ctx context.Context, args []any) Result {
	if s.Released() {
		return Failure(HandleError, "statement has been released")
	}
	if !s.conn.IsConnected() {
		return Failure(ConnectionError, "not connected")
	}
	cur, err := s.backend.Query(ctx, args)
	if err != nil {
		return failure(ExecutionError, err)
	}
	return successRows(newResultSet(cur))
}
