package docstore

import (
	"bytes"
	"os"
	"reflect"
	"testing"
)

// joinMerge is a stand-in for the CRDT merge primitive: it joins the
// fragments with '|' so tests can see exactly which fragments reached
// the merge and in what order.
func joinMerge(updates [][]byte) ([]byte, error) {
	return bytes.Join(updates, []byte("|")), nil
}

func tempDBFile(t testing.TB, pattern string) string {
	t.Helper()
	dbFile := must(os.CreateTemp("", pattern))
	t.Logf("DB: %s", dbFile.Name())
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	return dbFile.Name()
}

func setupBolt(t testing.TB) Engine {
	t.Helper()
	eng := must(OpenBolt(tempDBFile(t, "docstore_test_*.db"), Options{IsTesting: true}))
	t.Cleanup(func() { eng.Close() })
	return eng
}

func setupMem(t testing.TB) Engine {
	t.Helper()
	eng := NewMemEngine()
	t.Cleanup(func() { eng.Close() })
	return eng
}

// engines runs f once per engine backend.
func engines(t *testing.T, f func(t *testing.T, eng Engine)) {
	t.Run("mem", func(t *testing.T) {
		f(t, setupMem(t))
	})
	t.Run("bolt", func(t *testing.T) {
		f(t, setupBolt(t))
	})
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func eqbytes(t testing.TB, a []byte, e string) {
	if string(a) != e {
		t.Helper()
		t.Errorf("** got %q, wanted %q", a, e)
	}
}

func eqstrs(t testing.TB, a []string, e ...string) {
	t.Helper()
	am := make(map[string]bool, len(a))
	for _, s := range a {
		am[s] = true
	}
	em := make(map[string]bool, len(e))
	for _, s := range e {
		em[s] = true
	}
	if !reflect.DeepEqual(am, em) {
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isnilb(t testing.TB, a []byte) {
	if a != nil {
		t.Helper()
		t.Errorf("** got %q, wanted nil", a)
	}
}
