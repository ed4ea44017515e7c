package crossdb

import "context"

// A Query is an opaque structured statement understood by a Compiler.
// The bundled compile package handles the raw SQL form below; query-builder
// integrations supply their own Query types together with a matching
// Compiler on the backend they plug in.
type Query interface{}

// SQL is the raw-text Query form. Named placeholders use the :name syntax.
type SQL string

// Compiled is what a Compiler reports for a query: the backend-native text,
// the 1-based positional slots each named parameter fills, and the total
// slot count.
type Compiled struct {
	Text   string
	Params map[string][]int
	Slots  int
}

// Compiler renders a Query to backend-native text. Compilation can fail;
// a failed compile surfaces as a SyntaxError and nothing is executed.
type Compiler interface {
	Compile(q Query) (Compiled, error)
}

// ExecInfo reports what a row-less execution did.
type ExecInfo struct {
	RowsAffected int64
	LastInsertID int64
}

// Cursor is an open server-side result stream. Next fills dest, which is
// len(Columns()) wide, and returns io.EOF once the stream is drained.
//
// A Cursor belongs to the connection that produced it; the ResultSet
// wrapping it enforces that through retention.
type Cursor interface {
	Columns() []string
	Next(dest []any) error
	Close() error
}

// BackendStmt is a statement the backend has compiled and retained
// server-side. It stays valid until Close.
type BackendStmt interface {
	Exec(ctx context.Context, args []any) (ExecInfo, error)
	Query(ctx context.Context, args []any) (Cursor, error)
	Close() error
}

// Backend is the primitive contract a plugin implements. All methods are
// synchronous and are only ever called from the owning connection's worker,
// one at a time, so a Backend never needs internal locking for these.
//
// Raw text plus a positional nullable-value slice is the canonical execution
// primitive; named-parameter translation happens above this interface.
type Backend interface {
	Open(ctx context.Context) error
	Close() error
	Connected() bool

	// Compiler exposes the collaborator used for query-to-text rendering
	// and named-parameter slot mapping.
	Compiler() Compiler

	Exec(ctx context.Context, text string, args []any) (ExecInfo, error)
	Query(ctx context.Context, text string, args []any) (Cursor, error)
	Prepare(ctx context.Context, text string) (BackendStmt, error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
}

// Builder constructs an unopened Backend from a Config.
type Builder func(cfg *Config) (Backend, error)
