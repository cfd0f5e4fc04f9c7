package docstore

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

// InMemory can be passed to Open instead of a file path to get a
// transient in-memory engine.
const InMemory = ":memory:"

// metaBucket holds one storeState record per store name. The \x00 prefix
// keeps it out of the store namespace.
var metaBucket = []byte("\x00meta")

type Options struct {
	Logf      func(format string, args ...any)
	IsTesting bool
	MmapSize  int
}

// storeState is the persisted per-store meta record.
type storeState struct {
	Version uint32 `msgpack:"version"`
}

// Open opens an engine backed by a Bolt file at path, or a transient
// in-memory engine when path is InMemory.
func Open(path string, opt Options) (Engine, error) {
	if path == InMemory {
		return NewMemEngine(), nil
	}
	return OpenBolt(path, opt)
}

type boltEngine struct {
	bdb  *bbolt.DB
	logf func(format string, args ...any)
}

// OpenBolt opens a Bolt-backed engine at path, creating the file if it
// does not exist.
func OpenBolt(path string, opt Options) (Engine, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	return &boltEngine{bdb: bdb, logf: opt.Logf}, nil
}

// Bolt returns the underlying Bolt handle.
func (e *boltEngine) Bolt() *bbolt.DB {
	return e.bdb
}

func (e *boltEngine) log(format string, args ...any) {
	if e.logf != nil {
		e.logf(format, args...)
	}
}

func (e *boltEngine) Open(spec StoreSpec) (Conn, error) {
	err := e.bdb.Update(func(btx *bbolt.Tx) error {
		meta, err := btx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}

		var st storeState
		if raw := meta.Get(unsafeBytesFromString(spec.Name)); raw != nil {
			if err := msgpack.Unmarshal(raw, &st); err != nil {
				return dataErrf(raw, err, "store state for %s", spec.Name)
			}
		}
		if st.Version > spec.Version {
			return fmt.Errorf("store is at v%d, refusing to open at older v%d", st.Version, spec.Version)
		}

		root, err := btx.CreateBucketIfNotExists(unsafeBytesFromString(spec.Name))
		if err != nil {
			return err
		}
		coll, err := root.CreateBucketIfNotExists(unsafeBytesFromString(spec.Collection))
		if err != nil {
			return err
		}

		if st.Version == spec.Version {
			return nil
		}
		if spec.Upgrade != nil {
			utx := &boltTx{buck: coll, hosted: true}
			if err := spec.Upgrade(utx, st.Version, spec.Version); err != nil {
				return fmt.Errorf("upgrade v%d to v%d: %w", st.Version, spec.Version, err)
			}
		}
		e.log("docstore: %s: v%d -> v%d", spec.Name, st.Version, spec.Version)

		st.Version = spec.Version
		raw, err := msgpack.Marshal(&st)
		if err != nil {
			return err
		}
		return meta.Put([]byte(spec.Name), raw)
	})
	if err != nil {
		return nil, openErrf(spec.Name, spec.Version, err, "")
	}
	return &boltConn{engine: e, spec: spec}, nil
}

func (e *boltEngine) Close() error {
	return e.bdb.Close()
}

type boltConn struct {
	engine *boltEngine
	spec   StoreSpec
}

func (c *boltConn) Begin(writable bool) (EngineTx, error) {
	btx, err := c.engine.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	root := btx.Bucket(unsafeBytesFromString(c.spec.Name))
	if root == nil {
		_ = btx.Rollback()
		return nil, fmt.Errorf("store %s missing", c.spec.Name)
	}
	buck := root.Bucket(unsafeBytesFromString(c.spec.Collection))
	if buck == nil {
		_ = btx.Rollback()
		return nil, fmt.Errorf("store %s missing collection %s", c.spec.Name, c.spec.Collection)
	}
	return &boltTx{btx: btx, buck: buck}, nil
}

func (c *boltConn) Close() error {
	return nil // connections share the engine's Bolt handle
}

type boltTx struct {
	btx  *bbolt.Tx
	buck *bbolt.Bucket

	// hosted transactions run inside an enclosing Bolt transaction (the
	// upgrade hook); Commit and Rollback are no-ops for them.
	hosted bool
}

func (tx *boltTx) Writable() bool {
	if tx.hosted {
		return true
	}
	return tx.btx.Writable()
}

func (tx *boltTx) Get(key string) ([]byte, error) {
	return tx.buck.Get(unsafeBytesFromString(key)), nil
}

func (tx *boltTx) Put(key string, value []byte) error {
	return tx.buck.Put([]byte(key), value)
}

func (tx *boltTx) Delete(key string) error {
	return tx.buck.Delete(unsafeBytesFromString(key))
}

func (tx *boltTx) Clear() error {
	keys, err := tx.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := tx.buck.Delete(unsafeBytesFromString(key)); err != nil {
			return err
		}
	}
	return nil
}

func (tx *boltTx) Keys() ([]string, error) {
	var keys []string
	c := tx.buck.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, string(k))
	}
	return keys, nil
}

func (tx *boltTx) Commit() error {
	if tx.hosted {
		return nil
	}
	return tx.btx.Commit()
}

func (tx *boltTx) Rollback() error {
	if tx.hosted {
		return nil
	}
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		// Commit already ran, which is the normal flow.
		return nil
	}
	return err
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
