package docstore

import "sync"

// connCell lazily opens a store connection exactly once, sharing a single
// in-flight open among concurrent callers. A failed open resets the cell
// so the next Get starts a fresh attempt instead of memoizing the error.
type connCell struct {
	open func() (Conn, error)

	mu       sync.Mutex
	conn     Conn
	inflight *openCall
}

type openCall struct {
	done chan struct{}
	conn Conn
	err  error
}

func (c *connCell) Get() (Conn, error) {
	c.mu.Lock()
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	if call := c.inflight; call != nil {
		c.mu.Unlock()
		<-call.done
		return call.conn, call.err
	}

	call := &openCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	call.conn, call.err = c.open()

	c.mu.Lock()
	if call.err == nil {
		c.conn = call.conn
	}
	c.inflight = nil
	c.mu.Unlock()

	close(call.done)
	return call.conn, call.err
}
