package sqlite_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossdb-io/crossdb"
	_ "github.com/crossdb-io/crossdb/sqlite"
)

func open(t *testing.T) *crossdb.Conn {
	t.Helper()
	conn, err := crossdb.Open(&crossdb.Config{Backend: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, conn.ConnectSync())
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wait(issue func(crossdb.Callback)) crossdb.Result {
	ch := make(chan crossdb.Result, 1)
	issue(func(r crossdb.Result) { ch <- r })
	return <-ch
}

func mustExec(t *testing.T, conn *crossdb.Conn, q string) crossdb.Result {
	t.Helper()
	res := wait(func(cb crossdb.Callback) { conn.Execute(crossdb.SQL(q), cb) })
	require.NoError(t, res.Err())
	return res
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}

func TestEndToEnd(t *testing.T) {
	conn := open(t)
	mustExec(t, conn, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, org INTEGER)")

	ins := crossdb.SQL("INSERT INTO users (name, org) VALUES (:name, :org)")
	res := wait(func(cb crossdb.Callback) {
		conn.ExecuteNamed(ins, map[string]any{"name": "ada", "org": 1}, cb)
	})
	require.NoError(t, res.Err())
	assert.Equal(t, int64(1), res.Info().LastInsertID)

	for _, name := range []string{"brin", "curie"} {
		res = wait(func(cb crossdb.Callback) {
			conn.ExecuteNamed(ins, map[string]any{"name": name, "org": 2}, cb)
		})
		require.NoError(t, res.Err())
	}

	res = wait(func(cb crossdb.Callback) {
		conn.QueryNamed(crossdb.SQL("SELECT name FROM users WHERE org = :org ORDER BY id"),
			map[string]any{"org": 2}, cb)
	})
	require.NoError(t, res.Err())
	rs := res.Rows()
	require.NotNil(t, rs)
	assert.Same(t, conn, rs.Connection())

	var names []string
	row := make([]any, 1)
	for {
		err := rs.Next(row)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, asString(row[0]))
	}
	assert.Equal(t, []string{"brin", "curie"}, names)
	require.NoError(t, rs.Close())
	assert.False(t, conn.Retained())
}

func TestPreparedStatement(t *testing.T) {
	conn := open(t)
	mustExec(t, conn, "CREATE TABLE kv (k TEXT, v TEXT)")

	res := wait(func(cb crossdb.Callback) {
		conn.Prepare(crossdb.SQL("INSERT INTO kv VALUES (:k, :v)"), cb)
	})
	require.NoError(t, res.Err())
	st := res.Statement()
	require.NotNil(t, st)

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}} {
		res = wait(func(cb crossdb.Callback) {
			st.ExecNamed(map[string]any{"k": kv[0], "v": kv[1]}, cb)
		})
		require.NoError(t, res.Err())
	}

	require.NoError(t, wait(st.Release).Err())
	res = wait(st.Exec)
	require.Error(t, res.Err())
	assert.Equal(t, crossdb.HandleError, res.Kind())

	res = wait(func(cb crossdb.Callback) { conn.Query(crossdb.SQL("SELECT COUNT(*) FROM kv"), cb) })
	require.NoError(t, res.Err())
	rs := res.Rows()
	row := make([]any, 1)
	require.NoError(t, rs.Next(row))
	assert.Equal(t, int64(2), row[0])
	require.NoError(t, rs.Close())
}

func TestSavepoints(t *testing.T) {
	conn := open(t)
	mustExec(t, conn, "CREATE TABLE n (v INTEGER)")

	require.NoError(t, wait(conn.Begin).Err())
	mustExec(t, conn, "INSERT INTO n VALUES (1)")
	require.NoError(t, wait(func(cb crossdb.Callback) { conn.Savepoint("sp1", cb) }).Err())
	mustExec(t, conn, "INSERT INTO n VALUES (2)")
	require.NoError(t, wait(func(cb crossdb.Callback) { conn.RollbackTo("sp1", cb) }).Err())
	require.NoError(t, wait(conn.Commit).Err())

	res := wait(func(cb crossdb.Callback) { conn.Query(crossdb.SQL("SELECT COUNT(*) FROM n"), cb) })
	require.NoError(t, res.Err())
	rs := res.Rows()
	row := make([]any, 1)
	require.NoError(t, rs.Next(row))
	assert.Equal(t, int64(1), row[0], "rows after the savepoint were rolled back")
	require.NoError(t, rs.Close())
}

func TestDescriptionOf(t *testing.T) {
	conn := open(t)
	text, err := conn.DescriptionOf(crossdb.SQL("SELECT * FROM users WHERE id = :id"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id = ?", text)
}

func TestExecutionError(t *testing.T) {
	conn := open(t)
	res := wait(func(cb crossdb.Callback) { conn.Execute(crossdb.SQL("SELECT * FROM missing"), cb) })
	require.Error(t, res.Err())
	assert.Equal(t, crossdb.ExecutionError, res.Kind())
}
