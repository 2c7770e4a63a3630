package statestore

import (
	"container/list"
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const (
	defaultShardCount = 32
	defaultMaxEntries  = 100000 // entries per shard before LRU eviction
	defaultMaxListLen  = 100    // spec §4.5 "retain last 100 entries"
)

// entryValue is the sharded in-memory cell: a counter, a set, or a list,
// each with an absolute expiry. Only one of counter/set/list is meaningful
// at a time, selected by kind.
type entryValue struct {
	kind      entryKind
	counter   int64
	set       map[string]struct{}
	list      []string
	expiresAt time.Time // zero means "no expiry set yet"
}

type entryKind int

const (
	kindCounter entryKind = iota
	kindSet
	kindList
)

func (v *entryValue) expired(now time.Time) bool {
	return !v.expiresAt.IsZero() && now.After(v.expiresAt)
}

// lruCell wraps an entry with LRU tracking so a shard never grows unbounded
// under a flood of distinct keys.
type lruCell struct {
	key   string
	value *entryValue
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int
}

func newShard(maxSize int) *shard {
	return &shard{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// getOrCreate returns the live (non-expired) entry at key, creating one of
// the given kind if absent or if the previous entry at this key expired.
func (s *shard) getOrCreate(now time.Time, key string, kind entryKind) *entryValue {
	if elem, ok := s.entries[key]; ok {
		s.lru.MoveToFront(elem)
		v := elem.Value.(*lruCell).value
		if !v.expired(now) {
			return v
		}
		// expired: reset in place so counters restart a fresh window
		// (spec §8 TTL boundary behavior).
		*v = entryValue{kind: kind}
		if kind == kindSet {
			v.set = make(map[string]struct{})
		}
		return v
	}

	v := &entryValue{kind: kind}
	if kind == kindSet {
		v.set = make(map[string]struct{})
	}
	s.set(key, v)
	return v
}

func (s *shard) set(key string, v *entryValue) {
	if s.lru.Len() >= s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			cell := oldest.Value.(*lruCell)
			delete(s.entries, cell.key)
			s.lru.Remove(oldest)
		}
	}
	elem := s.lru.PushFront(&lruCell{key: key, value: v})
	s.entries[key] = elem
}

func (s *shard) get(now time.Time, key string) (*entryValue, bool) {
	elem, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	v := elem.Value.(*lruCell).value
	if v.expired(now) {
		s.lru.Remove(elem)
		delete(s.entries, key)
		return nil, false
	}
	s.lru.MoveToFront(elem)
	return v, true
}

func (s *shard) delete(key string) {
	if elem, ok := s.entries[key]; ok {
		s.lru.Remove(elem)
		delete(s.entries, key)
	}
}

// MemoryStore is a sharded, LRU-evicting implementation of Store, grounded
// on the teacher's sharded sliding-window rate limiter
// (internal/ratelimit/store/bucket), generalized here from fixed-window
// counting to the counter/set/list primitives spec §4.6 requires. It is the
// in-memory fallback the stream processor degrades to when the shared state
// store is unreachable (spec §4.4 "best-effort" mode), and the backing
// store for single-process tests and development.
type MemoryStore struct {
	shards     []*shard
	shardCount uint32
	now        func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithShardCount overrides the default shard count (32).
func WithShardCount(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shardCount = uint32(n)
		}
	}
}

// WithClock overrides the store's notion of "now", for deterministic TTL
// boundary tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func New(opts ...Option) *MemoryStore {
	s := &MemoryStore{shardCount: defaultShardCount, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = newShard(defaultMaxEntries)
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%s.shardCount]
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v := sh.getOrCreate(s.now(), key, kindCounter)
	v.counter++
	return v.counter, nil
}

func (s *MemoryStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v := sh.getOrCreate(s.now(), key, kindCounter)
	v.counter += delta
	return v.counter, nil
}

func (s *MemoryStore) SetExpire(_ context.Context, key string, ttl time.Duration) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if v, ok := sh.get(s.now(), key); ok {
		v.expiresAt = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.delete(key)
	return nil
}

func (s *MemoryStore) SetAdd(_ context.Context, key, member string) (bool, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v := sh.getOrCreate(s.now(), key, kindSet)
	if _, exists := v.set[member]; exists {
		return false, nil
	}
	v.set[member] = struct{}{}
	return true, nil
}

func (s *MemoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, ok := sh.get(s.now(), key)
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(v.set))
	for m := range v.set {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemoryStore) ListPrepend(_ context.Context, key, value string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v := sh.getOrCreate(s.now(), key, kindList)
	v.list = append([]string{value}, v.list...)
	if len(v.list) > defaultMaxListLen {
		v.list = v.list[:defaultMaxListLen]
	}
	return nil
}

func (s *MemoryStore) ListTrim(_ context.Context, key string, maxLen int) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if v, ok := sh.get(s.now(), key); ok && len(v.list) > maxLen {
		v.list = v.list[:maxLen]
	}
	return nil
}

func (s *MemoryStore) ListLength(_ context.Context, key string) (int, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, ok := sh.get(s.now(), key)
	if !ok {
		return 0, nil
	}
	return len(v.list), nil
}

func (s *MemoryStore) ListMembers(_ context.Context, key string) ([]string, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, ok := sh.get(s.now(), key)
	if !ok {
		return nil, nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out, nil
}

func (s *MemoryStore) GetTTL(_ context.Context, key string) (time.Duration, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, ok := sh.get(s.now(), key)
	if !ok || v.expiresAt.IsZero() {
		return -1, nil
	}
	return v.expiresAt.Sub(s.now()), nil
}

var _ Store = (*MemoryStore)(nil)
