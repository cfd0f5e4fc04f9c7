package docstore

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// countingEngine counts store opens to verify connection memoization.
type countingEngine struct {
	Engine
	opens atomic.Int32
}

func (e *countingEngine) Open(spec StoreSpec) (Conn, error) {
	e.opens.Add(1)
	return e.Engine.Open(spec)
}

func TestDocStorageWiring(t *testing.T) {
	engines(t, func(t *testing.T, eng Engine) {
		s := NewDocStorage("w1", eng, joinMerge, nil)

		assert.Equal(t, "w1", s.WorkspaceID())
		assert.Equal(t, "w1:sync-metadata", s.SyncMetadata().Name())
		assert.Equal(t, "w1:server-clock", s.ServerClock().Name())

		require.NoError(t, s.Doc().Set("d1", []byte("F1")))
		v, err := s.Doc().Get("d1")
		require.NoError(t, err)
		assert.Equal(t, "F1", string(v))

		require.NoError(t, s.SyncMetadata().Set("cursor", []byte("42")))
		require.NoError(t, s.ServerClock().Set("d1", []byte("1724668800123")))

		// The three stores do not see each other's records.
		keys, err := s.SyncMetadata().Keys()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"cursor"}, keys)
		keys, err = s.ServerClock().Keys()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"d1"}, keys)
		ids, err := s.Doc().Keys()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"d1"}, ids)
	})
}

func TestDocStorageNotifiesWithWorkspaceID(t *testing.T) {
	engines(t, func(t *testing.T, eng Engine) {
		n := NewChannelNotifier(4)
		s := NewDocStorage("w1", eng, joinMerge, n)

		require.NoError(t, s.Doc().Set("d1", []byte("F1")))
		assert.Equal(t, DocChange{"w1", "d1"}, <-n.C)
	})
}

func TestDocStorageOpensEachStoreOnce(t *testing.T) {
	engines(t, func(t *testing.T, eng Engine) {
		ce := &countingEngine{Engine: eng}
		s := NewDocStorage("w1", ce, joinMerge, nil)

		// Hammer the doc log before any open completes.
		const callers = 16
		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Doc().Get("d1")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, ce.opens.Load())

		// Further use of the other stores adds one open each.
		require.NoError(t, s.SyncMetadata().Set("k", []byte("v")))
		require.NoError(t, s.ServerClock().Set("k", []byte("v")))
		_, err := s.SyncMetadata().Get("k")
		require.NoError(t, err)
		assert.EqualValues(t, 3, ce.opens.Load())
	})
}

func TestDocStorageKVFollowsMandatedShape(t *testing.T) {
	// The persisted record shapes are part of the on-disk contract.
	engines(t, func(t *testing.T, eng Engine) {
		s := NewDocStorage("w1", eng, joinMerge, nil)
		require.NoError(t, s.SyncMetadata().Set("cursor", []byte{1, 2, 3}))

		conn, err := eng.Open(StoreSpec{Name: "w1:sync-metadata", Collection: "kv", Version: 1})
		require.NoError(t, err)
		tx, err := conn.Begin(false)
		require.NoError(t, err)
		defer tx.Rollback()

		raw, err := tx.Get("cursor")
		require.NoError(t, err)
		require.NotNil(t, raw)

		var rec kvRecord
		require.NoError(t, msgpack.Unmarshal(raw, &rec))
		assert.Equal(t, "cursor", rec.Key)
		assert.Equal(t, []byte{1, 2, 3}, rec.Val)
	})
}
