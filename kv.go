package docstore

import "github.com/vmihailenco/msgpack/v5"

const kvCollection = "kv"

// kvRecord is the persisted shape of one key-value entry.
type kvRecord struct {
	Key string `msgpack:"key"`
	Val []byte `msgpack:"val"`
}

// KV is a persistent mapping from string keys to opaque byte values,
// backed by one named engine store. The connection is opened lazily on
// first use and cached for the lifetime of the process.
//
// Top-level Get/Set/Delete/Clear/Keys each run in their own transaction;
// callers needing read-modify-write atomicity across multiple steps must
// use Update instead of sequential calls.
type KV struct {
	name string
	cell connCell
}

// NewKV returns a KV stored under the given engine-wide store name.
func NewKV(eng Engine, name string) *KV {
	kv := &KV{name: name}
	kv.cell.open = func() (Conn, error) {
		return eng.Open(StoreSpec{Name: name, Collection: kvCollection, Version: 1})
	}
	return kv
}

// Name returns the store name.
func (kv *KV) Name() string {
	return kv.name
}

// Get returns the stored value, or nil if the key is absent.
func (kv *KV) Get(key string) ([]byte, error) {
	var val []byte
	err := kv.View(func(tx *KVTx) error {
		var err error
		val, err = tx.Get(key)
		return err
	})
	return val, err
}

// Set upserts the value, replacing any existing one.
func (kv *KV) Set(key string, value []byte) error {
	return kv.Update(func(tx *KVTx) error {
		return tx.Set(key, value)
	})
}

// Delete removes the key; an absent key is not an error.
func (kv *KV) Delete(key string) error {
	return kv.Update(func(tx *KVTx) error {
		return tx.Delete(key)
	})
}

// Clear removes all keys.
func (kv *KV) Clear() error {
	return kv.Update(func(tx *KVTx) error {
		return tx.Clear()
	})
}

// Keys returns all stored keys, unordered.
func (kv *KV) Keys() ([]string, error) {
	var keys []string
	err := kv.View(func(tx *KVTx) error {
		var err error
		keys, err = tx.Keys()
		return err
	})
	return keys, err
}

// View runs fn inside a read-only transaction.
func (kv *KV) View(fn func(tx *KVTx) error) error {
	return kv.transact(false, fn)
}

// Update runs fn inside a read-write transaction, committing iff fn
// returns nil. Partial effects of a failed fn are discarded.
func (kv *KV) Update(fn func(tx *KVTx) error) error {
	return kv.transact(true, fn)
}

func (kv *KV) transact(writable bool, fn func(tx *KVTx) error) error {
	conn, err := kv.cell.Get()
	if err != nil {
		return err
	}
	etx, err := conn.Begin(writable)
	if err != nil {
		return err
	}
	defer etx.Rollback()
	if err := fn(&KVTx{etx: etx}); err != nil {
		return err
	}
	if !writable {
		return nil
	}
	return etx.Commit()
}

// KVTx exposes the five store operations scoped to one transaction.
// Mutating operations fail with ErrTxReadOnly on a read-only transaction.
type KVTx struct {
	etx EngineTx
}

// Writable returns true inside Update, false inside View.
func (tx *KVTx) Writable() bool {
	return tx.etx.Writable()
}

func (tx *KVTx) Get(key string) ([]byte, error) {
	raw, err := tx.etx.Get(key)
	if err != nil || raw == nil {
		return nil, err
	}
	var rec kvRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, dataErrf(raw, err, "kv record %q", key)
	}
	return rec.Val, nil
}

func (tx *KVTx) Set(key string, value []byte) error {
	if !tx.etx.Writable() {
		return ErrTxReadOnly
	}
	raw, err := msgpack.Marshal(&kvRecord{Key: key, Val: value})
	if err != nil {
		return err
	}
	return tx.etx.Put(key, raw)
}

func (tx *KVTx) Delete(key string) error {
	if !tx.etx.Writable() {
		return ErrTxReadOnly
	}
	return tx.etx.Delete(key)
}

func (tx *KVTx) Clear() error {
	if !tx.etx.Writable() {
		return ErrTxReadOnly
	}
	return tx.etx.Clear()
}

func (tx *KVTx) Keys() ([]string, error) {
	return tx.etx.Keys()
}
