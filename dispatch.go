package crossdb

import "sync/atomic"

// Callback receives the single completion of an asynchronous operation.
type Callback func(Result)

// dispatcher delivers one operation's completion exactly once, in one of two
// modes. Plain dispatch just invokes the callback. Retaining dispatch first
// binds the result's ResultSet to the producing connection, so the
// connection stays reserved until the set is closed.
type dispatcher struct {
	conn   *Conn
	retain bool
	cb     Callback
	fired  uint32
}

func (d *dispatcher) dispatch(res Result) {
	if !atomic.CompareAndSwapUint32(&d.fired, 0, 1) {
		errLog().Warn("completion dispatched twice, dropping", "backend", d.conn.cfg.Backend)
		return
	}
	if d.retain {
		if rs := res.rows; rs != nil {
			d.conn.holdRetention()
			rs.attach(d.conn)
		}
	}
	if d.cb != nil {
		d.cb(res)
	}
}
