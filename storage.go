package docstore

const (
	syncMetadataPurpose = "sync-metadata"
	serverClockPurpose  = "server-clock"
)

// DocStorage is the per-workspace persistence facade: one document update
// log plus the sync-metadata and server-clock key-value stores, all scoped
// to a single workspace id for their entire lifetime.
type DocStorage struct {
	workspaceID  string
	doc          *DocLog
	syncMetadata *KV
	serverClock  *KV
}

// NewDocStorage wires up the stores of one workspace on the given engine.
// merge is the CRDT update-merge primitive; notifier may be nil.
func NewDocStorage(workspaceID string, eng Engine, merge MergeFunc, notifier ChangeNotifier) *DocStorage {
	return &DocStorage{
		workspaceID:  workspaceID,
		doc:          NewDocLog(workspaceID, eng, merge, notifier),
		syncMetadata: NewKV(eng, workspaceID+":"+syncMetadataPurpose),
		serverClock:  NewKV(eng, workspaceID+":"+serverClockPurpose),
	}
}

func (s *DocStorage) WorkspaceID() string {
	return s.workspaceID
}

// Doc returns the workspace's document update log.
func (s *DocStorage) Doc() *DocLog {
	return s.doc
}

// SyncMetadata returns the sync bookkeeping store.
func (s *DocStorage) SyncMetadata() *KV {
	return s.syncMetadata
}

// ServerClock returns the server clock store.
func (s *DocStorage) ServerClock() *KV {
	return s.serverClock
}
