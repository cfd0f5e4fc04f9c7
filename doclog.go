package docstore

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	docStoreName    = "affine-local"
	docStoreVersion = 1
	docCollection   = "workspace"
)

// updateFragment is one stored update. Immutable once written; fragments
// are only appended or superseded wholesale, never mutated.
type updateFragment struct {
	Timestamp int64  `msgpack:"timestamp"` // wall clock, milliseconds
	Update    []byte `msgpack:"update"`
}

// docRecord is the persisted shape of one document's update history.
// Updates are kept in insertion order, not sorted by timestamp.
type docRecord struct {
	ID      string           `msgpack:"id"`
	Updates []updateFragment `msgpack:"updates"`
}

// DocLog stores the update history of every document in a workspace and
// consolidates it into a single canonical snapshot on read via the
// supplied merge primitive. Nothing is cached: every Get re-merges from
// the stored fragments.
type DocLog struct {
	workspaceID string
	merge       MergeFunc
	notifier    ChangeNotifier
	cell        connCell
	now         func() time.Time
}

// NewDocLog returns the document update log of one workspace. notifier
// may be nil.
func NewDocLog(workspaceID string, eng Engine, merge MergeFunc, notifier ChangeNotifier) *DocLog {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	l := &DocLog{
		workspaceID: workspaceID,
		merge:       merge,
		notifier:    notifier,
		now:         time.Now,
	}
	l.cell.open = func() (Conn, error) {
		return eng.Open(StoreSpec{Name: docStoreName, Collection: docCollection, Version: docStoreVersion})
	}
	return l
}

// Get returns the canonical snapshot of the document: the merge of all
// non-empty stored fragments in insertion order. Returns nil if no record
// exists or if every stored fragment is empty (an all-empty history is
// equivalent to no document).
func (l *DocLog) Get(id string) ([]byte, error) {
	var merged []byte
	err := l.View(func(tx *DocTx) error {
		rec, err := tx.record(id)
		if err != nil || rec == nil {
			return err
		}
		var updates [][]byte
		for _, f := range rec.Updates {
			if !isEmptyUpdate(f.Update) {
				updates = append(updates, f.Update)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		merged, err = l.merge(updates)
		return err
	})
	return merged, err
}

// Set replaces the document's entire update history with a single fresh
// fragment holding payload. Callers wanting to append incrementally must
// pre-merge inside Update (get, compose externally, set).
func (l *DocLog) Set(id string, payload []byte) error {
	return l.Update(func(tx *DocTx) error {
		return tx.Set(id, payload)
	})
}

// Delete is intentionally a no-op; documents are only deleted through a
// transactional behavior (see DocTx.Delete).
func (l *DocLog) Delete(id string) error {
	return nil
}

// Clear is intentionally a no-op, like Delete.
func (l *DocLog) Clear() error {
	return nil
}

// Keys returns the ids of all documents with a stored record, unordered.
func (l *DocLog) Keys() ([]string, error) {
	var keys []string
	err := l.View(func(tx *DocTx) error {
		var err error
		keys, err = tx.Keys()
		return err
	})
	return keys, err
}

// View runs fn inside a read-only transaction.
func (l *DocLog) View(fn func(tx *DocTx) error) error {
	return l.transact(false, fn)
}

// Update runs fn inside a read-write transaction, committing iff fn
// returns nil. Documents set by fn are reported to the change notifier
// once each, after the commit.
func (l *DocLog) Update(fn func(tx *DocTx) error) error {
	return l.transact(true, fn)
}

func (l *DocLog) transact(writable bool, fn func(tx *DocTx) error) error {
	conn, err := l.cell.Get()
	if err != nil {
		return err
	}
	etx, err := conn.Begin(writable)
	if err != nil {
		return err
	}
	defer etx.Rollback()
	tx := &DocTx{log: l, etx: etx}
	if err := fn(tx); err != nil {
		return err
	}
	if !writable {
		return nil
	}
	if err := etx.Commit(); err != nil {
		return err
	}
	for _, id := range tx.changed {
		l.notifier.DocChanged(l.workspaceID, id)
	}
	return nil
}

// DocTx exposes the document log operations scoped to one transaction.
// Mutating operations fail with ErrTxReadOnly on a read-only transaction.
type DocTx struct {
	log     *DocLog
	etx     EngineTx
	changed []string
}

// Writable returns true inside Update, false inside View.
func (tx *DocTx) Writable() bool {
	return tx.etx.Writable()
}

func (tx *DocTx) record(id string) (*docRecord, error) {
	raw, err := tx.etx.Get(id)
	if err != nil || raw == nil {
		return nil, err
	}
	var rec docRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, dataErrf(raw, err, "doc record %q", id)
	}
	return &rec, nil
}

// Get merges all stored fragments of the document in insertion order.
// Unlike DocLog.Get, empty fragments are not filtered out before the
// merge.
func (tx *DocTx) Get(id string) ([]byte, error) {
	rec, err := tx.record(id)
	if err != nil || rec == nil {
		return nil, err
	}
	if len(rec.Updates) == 0 {
		// Transient pre-write state; the merge input must be non-empty.
		return nil, nil
	}
	updates := make([][]byte, len(rec.Updates))
	for i, f := range rec.Updates {
		updates[i] = f.Update
	}
	return tx.log.merge(updates)
}

// Set replaces the document's record with a single fresh fragment.
func (tx *DocTx) Set(id string, payload []byte) error {
	if !tx.etx.Writable() {
		return ErrTxReadOnly
	}
	rec := docRecord{
		ID: id,
		Updates: []updateFragment{
			{Timestamp: tx.log.now().UnixMilli(), Update: payload},
		},
	}
	raw, err := msgpack.Marshal(&rec)
	if err != nil {
		return err
	}
	if err := tx.etx.Put(id, raw); err != nil {
		return err
	}
	tx.markChanged(id)
	return nil
}

// Delete removes the document's record. Unlike the top-level no-op,
// deletion inside a transaction is real.
func (tx *DocTx) Delete(id string) error {
	if !tx.etx.Writable() {
		return ErrTxReadOnly
	}
	return tx.etx.Delete(id)
}

// Clear removes all document records. Unlike the top-level no-op,
// clearing inside a transaction is real.
func (tx *DocTx) Clear() error {
	if !tx.etx.Writable() {
		return ErrTxReadOnly
	}
	return tx.etx.Clear()
}

// Keys returns the ids of all documents with a stored record, unordered.
func (tx *DocTx) Keys() ([]string, error) {
	return tx.etx.Keys()
}

func (tx *DocTx) markChanged(id string) {
	for _, c := range tx.changed {
		if c == id {
			return
		}
	}
	tx.changed = append(tx.changed, id)
}
