package lastbuilt

import (
	"os"
	"path/filepath"
	"time"
)

// Tracker decides per-item staleness for one build. It is advisory: with no
// store (cold build) everything reports stale and correctness is unaffected.
type Tracker struct {
	store   *Store // may be nil
	rootDir string
	fresh   map[string]bool
}

func NewTracker(store *Store, rootDir string) *Tracker {
	return &Tracker{store: store, rootDir: rootDir, fresh: make(map[string]bool)}
}

// Check compares a source's modification time against the previous build
// record and remembers the verdict for Stale lookups.
func (t *Tracker) Check(source string) (stale bool, err error) {
	if source == "" || t.store == nil {
		return true, nil
	}
	fi, err := os.Stat(filepath.Join(t.rootDir, source))
	if err != nil {
		// Missing sources surface later as structural content errors; the
		// tracker just refuses to mark them fresh.
		return true, nil
	}
	recorded, ok, err := t.store.LastModified(source)
	if err != nil {
		return true, err
	}
	if ok && !fi.ModTime().Truncate(time.Second).After(recorded) {
		t.fresh[source] = true
		return false, nil
	}
	return true, nil
}

// Stale reports whether a source must be rebuilt. Unchecked sources are
// stale by default.
func (t *Tracker) Stale(source string) bool {
	if source == "" {
		return true
	}
	return !t.fresh[source]
}

// MarkBuilt records a successful build of a source.
func (t *Tracker) MarkBuilt(source string) error {
	if source == "" || t.store == nil {
		return nil
	}
	fi, err := os.Stat(filepath.Join(t.rootDir, source))
	if err != nil {
		return nil
	}
	return t.store.Record(source, fi.ModTime().Truncate(time.Second))
}
