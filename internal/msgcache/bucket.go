package msgcache

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type stamped interface {
	insertedAt() time.Time
}

// bucket is one capacity-bounded cache. Entries are kept in insertion order,
// and an upsert moves the entry to the back, so the front is always the
// entry with the oldest insertedAt.
type bucket[V stamped] struct {
	entries  *orderedmap.OrderedMap[string, V]
	capacity int
}

func newBucket[V stamped](capacity int) *bucket[V] {
	return &bucket[V]{
		entries:  orderedmap.New[string, V](),
		capacity: capacity,
	}
}

// put upserts v and returns how many entries were evicted for capacity.
func (b *bucket[V]) put(id string, v V) int {
	b.entries.Delete(id)
	b.entries.Set(id, v)

	evicted := 0
	for b.capacity > 0 && b.entries.Len() > b.capacity {
		oldest := b.entries.Oldest()
		if oldest == nil {
			break
		}
		b.entries.Delete(oldest.Key)
		evicted++
	}
	return evicted
}

// take removes id and returns it unless it has outlived ttl.
func (b *bucket[V]) take(id string, now time.Time, ttl time.Duration) (V, bool) {
	v, ok := b.entries.Delete(id)
	if !ok {
		var zero V
		return zero, false
	}
	if ttl > 0 && !now.Before(v.insertedAt().Add(ttl)) {
		var zero V
		return zero, false
	}
	return v, true
}

func (b *bucket[V]) remove(id string) {
	b.entries.Delete(id)
}

// sweep drops every entry whose age has reached ttl.
func (b *bucket[V]) sweep(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	var expired []string
	for pair := b.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !now.Before(pair.Value.insertedAt().Add(ttl)) {
			expired = append(expired, pair.Key)
		}
	}
	for _, id := range expired {
		b.entries.Delete(id)
	}
	return len(expired)
}

func (b *bucket[V]) len() int {
	return b.entries.Len()
}

func (b *bucket[V]) clear() {
	b.entries = orderedmap.New[string, V]()
}
