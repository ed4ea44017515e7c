package crossdb

import "context"

// Transaction and savepoint control. Each verb is an ordinary queued
// operation delivering a Result; savepoint names are tracked client-side in
// creation order, so a rollback-to or release against a name this
// transaction never created, or one a prior rollback-to or release
// destroyed, fails as a HandleError without reaching the backend.

// Begin starts a transaction.
func (c *Conn) Begin(cb Callback) {
	c.control(cb, func(ctx context.Context) Result {
		if err := c.backend.Begin(ctx); err != nil {
			return failure(ExecutionError, err)
		}
		c.inTx = true
		c.savepoints = nil
		return Success()
	})
}

// Commit commits the current transaction.
func (c *Conn) Commit(cb Callback) {
	c.control(cb, func(ctx context.Context) Result {
		if err := c.backend.Commit(ctx); err != nil {
			return failure(ExecutionError, err)
		}
		c.inTx = false
		c.savepoints = nil
		return Success()
	})
}

// Rollback rolls the current transaction back.
func (c *Conn) Rollback(cb Callback) {
	c.control(cb, func(ctx context.Context) Result {
		if err := c.backend.Rollback(ctx); err != nil {
			return failure(ExecutionError, err)
		}
		c.inTx = false
		c.savepoints = nil
		return Success()
	})
}

// Savepoint creates a named checkpoint inside the current transaction.
// Reusing a live name moves it to the top of the stack, the way the engines
// replace the old savepoint.
func (c *Conn) Savepoint(name string, cb Callback) {
	c.control(cb, func(ctx context.Context) Result {
		if err := c.backend.Savepoint(ctx, name); err != nil {
			return failure(ExecutionError, err)
		}
		if i := c.savepointIndex(name); i >= 0 {
			c.savepoints = append(c.savepoints[:i], c.savepoints[i+1:]...)
		}
		c.savepoints = append(c.savepoints, name)
		return Success()
	})
}

// RollbackTo rolls back to the named savepoint. The savepoint itself
// survives and can be rolled back to again; savepoints created after it are
// destroyed.
func (c *Conn) RollbackTo(name string, cb Callback) {
	c.control(cb, func(ctx context.Context) Result {
		i := c.savepointIndex(name)
		if i < 0 {
			return Failure(HandleError, "unknown savepoint "+name)
		}
		if err := c.backend.RollbackTo(ctx, name); err != nil {
			return failure(ExecutionError, err)
		}
		c.savepoints = c.savepoints[:i+1]
		return Success()
	})
}

// ReleaseSavepoint releases the named savepoint, invalidating it and every
// savepoint created after it for the rest of the transaction.
func (c *Conn) ReleaseSavepoint(name string, cb Callback) {
	c.control(cb, func(ctx context.Context) Result {
		i := c.savepointIndex(name)
		if i < 0 {
			return Failure(HandleError, "unknown savepoint "+name)
		}
		if err := c.backend.ReleaseSavepoint(ctx, name); err != nil {
			return failure(ExecutionError, err)
		}
		c.savepoints = c.savepoints[:i]
		return Success()
	})
}

func (c *Conn) savepointIndex(name string) int {
	for i, n := range c.savepoints {
		if n == name {
			return i
		}
	}
	return -1
}

func (c *Conn) control(cb Callback, run func(ctx context.Context) Result) {
	c.enqueue(false, cb, func(ctx context.Context) Result {
		if !c.IsConnected() {
			return Failure(ConnectionError, "not connected")
		}
		return run(ctx)
	})
}
