// Package seen keeps a bounded record of event keys that were already applied.
package seen

// DefaultCapacity is the number of keys retained before the oldest is evicted.
const DefaultCapacity = 300

// Registry is a FIFO-bounded set of dedup keys. The set and the eviction
// queue always hold the same keys. A Registry is not safe for concurrent
// use; the engine loop owns it.
type Registry struct {
	keys  map[string]struct{}
	queue []string // ring buffer, oldest at head
	head  int
	cap   int
}

// New returns a Registry holding at most capacity keys.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		keys:  make(map[string]struct{}, capacity),
		queue: make([]string, 0, capacity),
		cap:   capacity,
	}
}

// Has reports whether key is currently remembered.
func (r *Registry) Has(key string) bool {
	_, ok := r.keys[key]
	return ok
}

// Remember records key. Remembering a present key is a no-op and does not
// refresh its position. At capacity the oldest key is evicted first.
func (r *Registry) Remember(key string) {
	if _, ok := r.keys[key]; ok {
		return
	}

	if len(r.queue) < r.cap {
		r.queue = append(r.queue, key)
		r.keys[key] = struct{}{}
		return
	}

	oldest := r.queue[r.head]
	delete(r.keys, oldest)
	r.queue[r.head] = key
	r.keys[key] = struct{}{}
	r.head = (r.head + 1) % r.cap
}

// Len returns the number of remembered keys.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Cap returns the configured capacity.
func (r *Registry) Cap() int {
	return r.cap
}

// Keys returns the remembered keys from oldest to newest.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.queue))
	for i := 0; i < len(r.queue); i++ {
		out = append(out, r.queue[(r.head+i)%len(r.queue)])
	}
	return out
}
