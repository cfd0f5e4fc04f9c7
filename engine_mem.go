package docstore

import (
	"fmt"
	"sync"
)

// memEngine is a transient in-memory Engine with snapshot isolation:
// each transaction works on a copy of its store and a single writer is
// admitted at a time. Intended for tests and ephemeral workspaces.
type memEngine struct {
	mu     sync.Mutex
	cond   *sync.Cond
	stores map[string]*memStore
	closed bool
	writer bool
}

type memStore struct {
	version uint32
	records map[string][]byte
}

// NewMemEngine returns a transient in-memory Engine.
func NewMemEngine() Engine {
	e := &memEngine{stores: make(map[string]*memStore)}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *memEngine) Open(spec StoreSpec) (Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.writer && !e.closed {
		e.cond.Wait()
	}
	if e.closed {
		return nil, ErrEngineClosed
	}

	st := e.stores[spec.Name]
	if st == nil {
		st = &memStore{records: make(map[string][]byte)}
		e.stores[spec.Name] = st
	}
	if st.version > spec.Version {
		return nil, openErrf(spec.Name, spec.Version, fmt.Errorf("store is at v%d, refusing to open at older v%d", st.version, spec.Version), "")
	}
	if st.version < spec.Version {
		if spec.Upgrade != nil {
			utx := &memTx{writable: true, hosted: true, records: st.records}
			if err := spec.Upgrade(utx, st.version, spec.Version); err != nil {
				return nil, openErrf(spec.Name, spec.Version, err, "upgrade v%d to v%d", st.version, spec.Version)
			}
		}
		st.version = spec.Version
	}
	return &memConn{engine: e, name: spec.Name}, nil
}

func (e *memEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.stores = nil
	e.cond.Broadcast()
	return nil
}

type memConn struct {
	engine *memEngine
	name   string
}

func (c *memConn) Begin(writable bool) (EngineTx, error) {
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if writable {
		for e.writer && !e.closed {
			e.cond.Wait()
		}
		if e.closed {
			return nil, ErrEngineClosed
		}
		e.writer = true
	}

	st := e.stores[c.name]
	if st == nil {
		if writable {
			e.writer = false
			e.cond.Broadcast()
		}
		return nil, fmt.Errorf("store %s missing", c.name)
	}

	// Snapshot the store for transactional isolation (simplicity over
	// efficiency).
	snap := make(map[string][]byte, len(st.records))
	for k, v := range st.records {
		snap[k] = v
	}
	return &memTx{engine: e, name: c.name, writable: writable, records: snap}, nil
}

func (c *memConn) Close() error {
	return nil
}

type memTx struct {
	engine   *memEngine
	name     string
	writable bool
	hosted   bool
	records  map[string][]byte
	done     bool
}

func (tx *memTx) Writable() bool {
	return tx.writable
}

func (tx *memTx) Get(key string) ([]byte, error) {
	if tx.done {
		return nil, fmt.Errorf("tx is closed")
	}
	return tx.records[key], nil
}

func (tx *memTx) Put(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	tx.records[key] = append([]byte(nil), value...)
	return nil
}

func (tx *memTx) Delete(key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	delete(tx.records, key)
	return nil
}

func (tx *memTx) Clear() error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	clear(tx.records)
	return nil
}

func (tx *memTx) Keys() ([]string, error) {
	if tx.done {
		return nil, fmt.Errorf("tx is closed")
	}
	var keys []string
	for k := range tx.records {
		keys = append(keys, k)
	}
	return keys, nil
}

func (tx *memTx) checkWrite() error {
	if tx.done {
		return fmt.Errorf("tx is closed")
	}
	if !tx.writable {
		return fmt.Errorf("tx is read-only")
	}
	return nil
}

func (tx *memTx) Commit() error {
	if tx.hosted {
		return nil
	}
	if tx.done {
		return fmt.Errorf("tx is closed")
	}
	e := tx.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	tx.done = true
	if !tx.writable {
		return nil
	}
	if !e.closed {
		if st := e.stores[tx.name]; st != nil {
			st.records = tx.records
		}
	}
	e.writer = false
	e.cond.Broadcast()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.hosted || tx.done {
		return nil
	}
	e := tx.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	tx.done = true
	if tx.writable {
		e.writer = false
		e.cond.Broadcast()
	}
	return nil
}
