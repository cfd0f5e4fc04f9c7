package docstore

// ChangeNotifier receives "document changed" events after a write commits.
// Delivery is fire-and-forget: implementations must not block, and the
// stores never wait on them.
type ChangeNotifier interface {
	DocChanged(workspaceID, docID string)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) DocChanged(workspaceID, docID string) {}

// DocChange is one change event.
type DocChange struct {
	WorkspaceID string
	DocID       string
}

// ChannelNotifier delivers events over a buffered channel, dropping
// events when the buffer is full rather than blocking the writer.
type ChannelNotifier struct {
	C chan DocChange
}

func NewChannelNotifier(buf int) *ChannelNotifier {
	return &ChannelNotifier{C: make(chan DocChange, buf)}
}

func (n *ChannelNotifier) DocChanged(workspaceID, docID string) {
	select {
	case n.C <- DocChange{workspaceID, docID}:
	default:
	}
}
