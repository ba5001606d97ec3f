package evcore

import "sync"

// registry is the loop's handle registry. It is logically one table but
// is reported through two counters — a "data registry" and a "function
// registry" — because Stats exposes them separately. evcore keeps a
// single map internally (every record always has exactly one callback
// bundle) and reports fnCount as a function of the same table, documented
// on Stats.
//
// Every method takes the registry's mutex: allocate is called from
// goroutines that will later Submit a result back to the loop, and the
// HTTP server's request goroutines also call destroy directly.
type registry struct {
	mu      sync.Mutex
	nextID  Handle
	records map[Handle]*handleRecord
}

func newRegistry() *registry {
	return &registry{
		nextID:  1, // 0 is reserved as the null/invalid handle
		records: make(map[Handle]*handleRecord),
	}
}

// allocate reserves a fresh id and a record of the given kind, visible
// immediately to lookup. This lets a goroutine reserve an id before it
// knows whether the operation it backs will resolve synchronously or
// asynchronously.
func (r *registry) allocate(kind Kind) *handleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	rec := &handleRecord{id: id, kind: kind}
	r.records[id] = rec
	return rec
}

// lookup returns the record for id, or nil if it has already been
// destroyed. A missing id is not an error: the trampoline that called
// lookup silently returns.
func (r *registry) lookup(id Handle) *handleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id]
}

// destroy removes the record from the table under the lock and then
// releases its reactor resource via rec.cancel, if set. The resource is
// not released before the removal: a wakeup that runs in between finds
// no record and returns. Because only the caller that removed the record
// runs cancel, cancel runs at most once per record. destroy is
// idempotent: destroying an already-destroyed handle is a silent no-op.
func (r *registry) destroy(id Handle) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.records, id)
	r.mu.Unlock()

	if rec.cancel != nil {
		rec.cancel()
	}
}

// count returns the number of live records, used for both the
// data-registry-count and fn-registry-count stats: every record has
// exactly one callback bundle, so the two counts coincide in this
// implementation (see DESIGN.md for the rationale).
func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// countWhere reports the number of live records matching pred, used by
// Stats to break the single internal table down by kind/direction.
func (r *registry) countWhere(pred func(*handleRecord) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if pred(rec) {
			n++
		}
	}
	return n
}

// purge forcibly destroys every outstanding record, releasing reactor
// resources but invoking no user callback. Called when the loop exits so
// every retained resource is released even with pending work still in
// the registry.
func (r *registry) purge() {
	r.mu.Lock()
	recs := make([]*handleRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.records = make(map[Handle]*handleRecord)
	r.mu.Unlock()

	for _, rec := range recs {
		if rec.cancel != nil {
			rec.cancel()
		}
	}
}
