// Package sqlconn adapts a single dedicated database/sql connection to the
// crossdb Backend contract. The bundled sqlite, postgres and mysql plugins
// are thin wrappers over it.
package sqlconn

import (
	"context"
	"database/sql"
	"io"
	"strings"

	"github.com/crossdb-io/crossdb"
)

type Options struct {
	DriverName string
	DSN        string
	Compiler   crossdb.Compiler

	// QuoteIdent renders an identifier for the engine's savepoint verbs.
	// Defaults to QuoteANSI; mysql needs QuoteBacktick because its default
	// sql_mode reads double quotes as string literals.
	QuoteIdent func(name string) string
}

// Backend holds one physical session: a *sql.Conn checked out of its own
// *sql.DB, so nothing else can interleave statements on it.
type Backend struct {
	opts Options
	db   *sql.DB
	conn *sql.Conn
}

func New(opts Options) *Backend {
	if opts.QuoteIdent == nil {
		opts.QuoteIdent = QuoteANSI
	}
	return &Backend{opts: opts}
}

func (b *Backend) Open(ctx context.Context) error {
	db, err := sql.Open(b.opts.DriverName, b.opts.DSN)
	if err != nil {
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return err
	}
	b.db = db
	b.conn = conn
	return nil
}

func (b *Backend) Close() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	if cerr := b.db.Close(); err == nil {
		err = cerr
	}
	b.conn = nil
	b.db = nil
	return err
}

func (b *Backend) Connected() bool {
	return b.conn != nil
}

func (b *Backend) Compiler() crossdb.Compiler {
	return b.opts.Compiler
}

func (b *Backend) Exec(ctx context.Context, text string, args []any) (crossdb.ExecInfo, error) {
	res, err := b.conn.ExecContext(ctx, text, args...)
	if err != nil {
		return crossdb.ExecInfo{}, err
	}
	return execInfo(res), nil
}

func (b *Backend) Query(ctx context.Context, text string, args []any) (crossdb.Cursor, error) {
	rows, err := b.conn.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	return newCursor(rows)
}

func (b *Backend) Prepare(ctx context.Context, text string) (crossdb.BackendStmt, error) {
	st, err := b.conn.PrepareContext(ctx, text)
	if err != nil {
		return nil, err
	}
	return &stmt{st: st}, nil
}

func (b *Backend) Begin(ctx context.Context) error {
	_, err := b.conn.ExecContext(ctx, "BEGIN")
	return err
}

func (b *Backend) Commit(ctx context.Context) error {
	_, err := b.conn.ExecContext(ctx, "COMMIT")
	return err
}

func (b *Backend) Rollback(ctx context.Context) error {
	_, err := b.conn.ExecContext(ctx, "ROLLBACK")
	return err
}

func (b *Backend) Savepoint(ctx context.Context, name string) error {
	_, err := b.conn.ExecContext(ctx, "SAVEPOINT "+b.opts.QuoteIdent(name))
	return err
}

func (b *Backend) RollbackTo(ctx context.Context, name string) error {
	_, err := b.conn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+b.opts.QuoteIdent(name))
	return err
}

func (b *Backend) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := b.conn.ExecContext(ctx, "RELEASE SAVEPOINT "+b.opts.QuoteIdent(name))
	return err
}

func execInfo(res sql.Result) crossdb.ExecInfo {
	var info crossdb.ExecInfo
	// not every driver supports both; absence is not an error
	if n, err := res.RowsAffected(); err == nil {
		info.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		info.LastInsertID = id
	}
	return info
}

// QuoteANSI renders name as an ANSI double-quoted identifier.
func QuoteANSI(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBacktick renders name as a backtick-quoted identifier.
func QuoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

type cursor struct {
	rows *sql.Rows
	cols []string
}

func newCursor(rows *sql.Rows) (*cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &cursor{rows: rows, cols: cols}, nil
}

func (c *cursor) Columns() []string {
	return c.cols
}

func (c *cursor) Next(dest []any) error {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	ptrs := make([]any, len(dest))
	for i := range ptrs {
		ptrs[i] = &dest[i]
	}
	return c.rows.Scan(ptrs...)
}

func (c *cursor) Close() error {
	return c.rows.Close()
}

type stmt struct {
	st *sql.Stmt
}

func (s *stmt) Exec(ctx context.Context, args []any) (crossdb.ExecInfo, error) {
	res, err := s.st.ExecContext(ctx, args...)
	if err != nil {
		return crossdb.ExecInfo{}, err
	}
	return execInfo(res), nil
}

func (s *stmt) Query(ctx context.Context, args []any) (crossdb.Cursor, error) {
	rows, err := s.st.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return newCursor(rows)
}

func (s *stmt) Close() error {
	return s.st.Close()
}
