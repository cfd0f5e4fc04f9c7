package docstore

// MergeFunc composes an ordered sequence of binary update fragments into a
// single fragment representing their combined effect. The input is never
// empty. Implementations must tolerate duplicate and out-of-order
// fragments without corrupting the final document state.
type MergeFunc func(updates [][]byte) ([]byte, error)

// isEmptyUpdate reports whether b is an empty update: zero-length or the
// 2-byte {0,0} canonical empty-delta encoding of the update format. Empty
// updates are filtered out before merging; for some encoders they are
// invalid merge input.
func isEmptyUpdate(b []byte) bool {
	return len(b) == 0 || (len(b) == 2 && b[0] == 0 && b[1] == 0)
}
