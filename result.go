package crossdb

// Result is the outcome of one operation: empty success, success carrying an
// open ResultSet, or an error. Exactly one variant is set. Prepare
// completions additionally carry the statement handle.
type Result struct {
	rows *ResultSet
	stmt *Stmt
	info ExecInfo
	err  *Error
}

// Success is the empty-success variant.
func Success() Result {
	return Result{}
}

// Failure builds the error variant.
func Failure(kind ErrorKind, msg string) Result {
	return Result{err: newError(kind, msg)}
}

func successRows(rs *ResultSet) Result {
	return Result{rows: rs}
}

func successStmt(s *Stmt) Result {
	return Result{stmt: s}
}

func successInfo(info ExecInfo) Result {
	return Result{info: info}
}

func failure(kind ErrorKind, err error) Result {
	return Result{err: wrapError(kind, err)}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.err == nil }

// Err returns the failure, or nil. The concrete type is *Error.
func (r Result) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Kind returns the error kind; only meaningful when Err is non-nil.
func (r Result) Kind() ErrorKind {
	if r.err == nil {
		return ErrorKind(-1)
	}
	return r.err.Kind
}

// Rows returns the open ResultSet, or nil for the other variants.
func (r Result) Rows() *ResultSet { return r.rows }

// Statement returns the prepared handle delivered by a Prepare completion.
func (r Result) Statement() *Stmt { return r.stmt }

// Info reports affected rows / last insert id for row-less executions.
func (r Result) Info() ExecInfo { return r.info }
