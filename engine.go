package docstore

// Engine represents a backing storage engine (Bolt, in-memory, etc.)
// hosting any number of named, versioned stores.
type Engine interface {
	// Open opens (creating or upgrading if necessary) the store described
	// by spec and returns a connection to it. Opening an existing store at
	// a version lower than the recorded one fails with an *OpenError.
	Open(spec StoreSpec) (Conn, error)

	// Close closes the engine and invalidates all connections.
	Close() error
}

// StoreSpec identifies one named store within an engine.
type StoreSpec struct {
	// Name is the engine-wide unique store name.
	Name string

	// Collection is the record collection within the store. Every
	// connection opened from this spec is scoped to this collection.
	Collection string

	// Version is the schema version the caller requires.
	Version uint32

	// Upgrade, when non-nil, runs inside the write transaction that bumps
	// the recorded version from `from` to `to`. It runs only when the
	// recorded version is behind the requested one (0 on first creation,
	// after the collection has been created). The callback must not
	// Commit or Rollback the supplied transaction.
	Upgrade func(tx EngineTx, from, to uint32) error
}

// Conn is a connection to one store collection.
type Conn interface {
	// Begin starts a transaction against the collection.
	Begin(writable bool) (EngineTx, error)

	// Close releases the connection.
	Close() error
}

// EngineTx is a transaction over one collection, keyed by record id.
//
// Byte slices returned by Get are only valid until the transaction ends.
type EngineTx interface {
	// Writable returns true if this is a read-write transaction.
	Writable() bool

	// Get retrieves a record by key. Returns nil, nil when absent.
	Get(key string) ([]byte, error)

	// Put stores a record, replacing any existing one.
	Put(key string, value []byte) error

	// Delete removes a record. Deleting an absent key is not an error.
	Delete(key string) error

	// Clear removes all records in the collection.
	Clear() error

	// Keys returns all record keys in the collection.
	Keys() ([]string, error)

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction. It is safe to call after Commit.
	Rollback() error
}
