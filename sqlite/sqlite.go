// Package sqlite registers the sqlite backend, backed by mattn/go-sqlite3.
//
//	crossdb.OpenDSN("sqlite:///var/data/app.db")
//	crossdb.OpenDSN("sqlite:///:memory:")
package sqlite

import (
	_ "github.com/mattn/go-sqlite3"

	"github.com/crossdb-io/crossdb"
	"github.com/crossdb-io/crossdb/compile"
	"github.com/crossdb-io/crossdb/internal/sqlconn"
)

func init() {
	crossdb.Register("sqlite", New)
}

// New builds an unopened sqlite backend. The database path comes from
// DBName, or Addr for the ":memory:" form.
func New(cfg *crossdb.Config) (crossdb.Backend, error) {
	path := cfg.DBName
	if path == "" {
		path = cfg.Addr
	}
	return sqlconn.New(sqlconn.Options{
		DriverName: "sqlite3",
		DSN:        path,
		Compiler:   compile.New(compile.Question),
	}), nil
}
