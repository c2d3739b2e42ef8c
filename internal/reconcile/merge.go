package reconcile

import (
	"reflect"
	"sync"
	"time"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// DefaultGuardWindow is how long a local write suppresses an out-of-date
// remote echo for the same record. A remote snapshot taken before the write
// can arrive after it; within this window the local copy wins.
const DefaultGuardWindow = 100 * time.Millisecond

// Guard tracks recent local writes and deletes for one collection so a stale
// remote snapshot can neither revert a freshly written record nor resurrect
// a freshly deleted one.
//
// The window is a heuristic, adequate while each user edits their own data;
// a per-record write sequence number would give stronger ordering if
// multi-writer contention on single records becomes common.
type Guard struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]guardEntry

	now func() time.Time // overridable in tests
}

type guardEntry struct {
	at      time.Time
	deleted bool
}

// NewGuard creates a guard with the given window. A zero window selects
// DefaultGuardWindow.
func NewGuard(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultGuardWindow
	}
	return &Guard{
		window:  window,
		entries: make(map[string]guardEntry),
		now:     time.Now,
	}
}

// NoteWrite records that id was just written locally.
func (g *Guard) NoteWrite(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[id] = guardEntry{at: g.now()}
}

// NoteDelete records that id was just deleted locally.
func (g *Guard) NoteDelete(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[id] = guardEntry{at: g.now(), deleted: true}
}

// Holds reports whether a local write to id is still within the guard
// window, meaning the local copy must not be overwritten by remote data.
func (g *Guard) Holds(id string) bool {
	e, ok := g.lookup(id)
	return ok && !e.deleted
}

// Deleted reports whether id was locally deleted within the guard window,
// meaning a remote copy must not be re-added.
func (g *Guard) Deleted(id string) bool {
	e, ok := g.lookup(id)
	return ok && e.deleted
}

// lookup returns the live entry for id, pruning it once expired.
func (g *Guard) lookup(id string) (guardEntry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[id]
	if !ok {
		return guardEntry{}, false
	}
	if g.now().Sub(e.at) > g.window {
		delete(g.entries, id)
		return guardEntry{}, false
	}
	return e, true
}

// Lists builds one canonical, identifier-unique list from a local-cache
// snapshot and a remote-feed snapshot.
//
// The result starts from the local list's order; remote-only records are
// appended in remote order. When both sources hold the same id the remote
// entry wins, unless the guard holds a fresher local write for that id.
// Records the guard marks as freshly deleted are excluded even when the
// remote snapshot still carries them.
//
// A nil guard disables the recency check. Neither input is mutated.
func Lists[T model.Record[T]](local, remote []T, g *Guard) []T {
	remoteByID := make(map[string]T, len(remote))
	for _, rec := range remote {
		id := rec.RecordID()
		if _, ok := remoteByID[id]; !ok {
			remoteByID[id] = rec
		}
	}

	out := make([]T, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local)+len(remote))

	for _, rec := range local {
		id := rec.RecordID()
		if seen[id] {
			continue
		}
		seen[id] = true
		if r, ok := remoteByID[id]; ok && (g == nil || !g.Holds(id)) {
			out = append(out, r)
			continue
		}
		out = append(out, rec)
	}

	for _, rec := range remote {
		id := rec.RecordID()
		if seen[id] {
			continue
		}
		seen[id] = true
		if g != nil && g.Deleted(id) {
			continue
		}
		out = append(out, rec)
	}

	return out
}

// Equal reports structural equality of two lists. The sync engine uses it to
// suppress re-emission of unchanged merges, which would otherwise trigger
// redundant notifications or feedback loops between the two sources.
func Equal[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
