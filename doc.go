// Package crossdb is a database-agnostic connection abstraction.
//
// Backend plugins implement the primitive Backend contract (execute raw text
// with positional parameters, prepare, transaction control) and everything
// else is layered on top of it once: translation of name-keyed parameter maps
// into positional arrays, a per-connection FIFO completion pipeline, and the
// retention protocol that keeps a connection reserved while one of its
// streaming result sets is still open.
//
// Every asynchronous operation completes through exactly one invocation of
// the caller-supplied callback, carrying a Result. A Result is one of three
// things: empty success, success with an open ResultSet, or an error with a
// kind and message. Failures on the async path are never delivered any other
// way.
//
// Backends register themselves the way database/sql drivers do:
//
//	import _ "github.com/crossdb-io/crossdb/sqlite"
//
//	conn, err := crossdb.OpenDSN("sqlite:///tmp/app.db")
//	if err != nil { ... }
//	if err := conn.ConnectSync(); err != nil { ... }
//
//	conn.QueryNamed(crossdb.SQL("SELECT id, email FROM users WHERE org = :org"),
//		map[string]any{"org": 7},
//		func(res crossdb.Result) {
//			if res.Err() != nil { ... }
//			rs := res.Rows()
//			defer rs.Close()
//			...
//		})
package crossdb
