/*
Package docstore implements local, per-workspace persistence for a
CRDT-based collaborative document model on top of a key-value store
(in this case, on top of Bolt).

We implement:

1. Document update logs, storing an ordered list of timestamped binary
update fragments per document id and consolidating them into a single
canonical snapshot on read via an externally supplied merge primitive.

2. Byte key-value stores, generic persistent mappings from string keys to
opaque byte values, used for auxiliary metadata such as sync bookkeeping
and server clocks.

3. Transactions, exposing the same five operations (get/set/delete/clear/
keys) scoped to one atomic unit of work; mutating through a read-only
transaction fails with ErrTxReadOnly.

4. A storage facade, composing one document log and two key-value stores
under a single workspace id, plus a change-notification sink.

# Technical Details

**Engine.**
Stores talk to the backing engine through a minimal contract (Engine /
Conn / EngineTx). The production engine maps each named store to a root
Bolt bucket with one nested bucket per collection; an in-memory engine
with snapshot-per-transaction isolation serves tests and ephemeral
workspaces.

**Store versioning.**
The Bolt engine keeps one meta record per store name holding the schema
version. Opening a store at a higher version runs the StoreSpec's Upgrade hook
inside the same write transaction that bumps the recorded version; opening
at a lower version fails.

**Connections.**
Each store opens its connection lazily on first use through a memoized
connection cell: concurrent first callers share a single in-flight open,
so schema initialization runs exactly once. A failed open resets the cell
and the next call starts a fresh attempt.

**Record encoding.**
Records are encoded with msgpack. Document records have the shape
{id, updates: [{timestamp, update}, ...]}; key-value records have the
shape {key, val}; timestamps are wall-clock milliseconds.

**Merge-on-read.**
DocLog.Get filters out empty update fragments (zero-length or the 2-byte
{0,0} empty-delta encoding) and merges the rest in insertion order on
every call; nothing is cached. The transactional DocTx.Get merges all
stored fragments without the empty filter. DocLog.Set replaces the whole
fragment list with a single fresh fragment rather than appending.
*/
package docstore
