package crossdb

import "sync/atomic"

// IsConnected reports the session state. No side effects.
func (c *Conn) IsConnected() bool {
	return atomic.LoadUint32(&c.connected) != 0
}

func (c *Conn) setConnected() {
	atomic.StoreUint32(&c.connected, 1)
}

func (c *Conn) setDisconnected() {
	atomic.StoreUint32(&c.connected, 0)
}

// Retained reports whether any ResultSet produced by this Conn is still
// open. A pool must not hand the connection out while this is true.
func (c *Conn) Retained() bool {
	return atomic.LoadInt32(&c.retained) > 0
}

// OnRelease installs the hook fired when the last open ResultSet is closed.
// The pool uses this as the reuse signal.
func (c *Conn) OnRelease(fn func(*Conn)) {
	c.hookMu.Lock()
	c.onRelease = fn
	c.hookMu.Unlock()
}

func (c *Conn) holdRetention() {
	atomic.AddInt32(&c.retained, 1)
}

func (c *Conn) releaseRetention() {
	if atomic.AddInt32(&c.retained, -1) > 0 {
		return
	}
	c.hookMu.Lock()
	hook := c.onRelease
	c.hookMu.Unlock()
	if hook != nil {
		hook(c)
	}
}
