package docstore

import (
	"fmt"
	"sort"
	"strings"
)

// DumpKV renders the store's contents for debugging.
func DumpKV(kv *KV) (string, error) {
	var buf strings.Builder
	err := kv.View(func(tx *KVTx) error {
		keys, err := tx.Keys()
		if err != nil {
			return err
		}
		sort.Strings(keys)
		fmt.Fprintf(&buf, "%s (%d keys)\n", kv.Name(), len(keys))
		for _, key := range keys {
			val, err := tx.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(&buf, "  %s = (%d) %x\n", key, len(val), val)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DumpDocLog renders the log's fragment histories for debugging.
func DumpDocLog(l *DocLog) (string, error) {
	var buf strings.Builder
	err := l.View(func(tx *DocTx) error {
		ids, err := tx.Keys()
		if err != nil {
			return err
		}
		sort.Strings(ids)
		fmt.Fprintf(&buf, "%s (%d docs)\n", l.workspaceID, len(ids))
		for _, id := range ids {
			rec, err := tx.record(id)
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			fmt.Fprintf(&buf, "  %s (%d fragments)\n", id, len(rec.Updates))
			for _, f := range rec.Updates {
				fmt.Fprintf(&buf, "    t=%d (%d) %x\n", f.Timestamp, len(f.Update), f.Update)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
