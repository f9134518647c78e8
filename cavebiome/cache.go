package cavebiome

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/brentp/intintmap"
	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/fasthash/fnv1a"
	"golang.org/x/sync/singleflight"
)

const (
	// NumSets is the number of independent, mutex-protected sets the cache
	// is split into.
	NumSets = 256
	// Ways is the number of slots per set. Eviction picks the
	// least-recently-used slot within a set, never across sets.
	Ways = 8
)

// producerFunc generates and fully populates a fresh fragment for pos. It
// must set the fragment's refcount to 1 (the cache's own reference) before
// returning, and must not be called while holding any cache lock — fragment
// generation can be slow and must never serialize against unrelated
// lookups.
type producerFunc func(pos FragmentPosition) *BiomeFragment

func posBytes(pos FragmentPosition) [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint32(b[0:4], uint32(pos.X))
	binary.LittleEndian.PutUint32(b[4:8], uint32(pos.Y))
	binary.LittleEndian.PutUint32(b[8:12], uint32(pos.Z))
	binary.LittleEndian.PutUint32(b[12:16], uint32(pos.VoxelSize))
	return b
}

func setIndex(pos FragmentPosition) int {
	b := posBytes(pos)
	return int(fnv1a.HashBytes32(b[:]) & (NumSets - 1))
}

func posHashKey(pos FragmentPosition) int64 {
	b := posBytes(pos)
	// intintmap keys are int64; xxhash's 64-bit digest reinterpreted as
	// signed is a fine uniformly distributed key.
	return int64(xxhash.Sum64(b[:]))
}

type cacheSlot struct {
	valid    bool
	pos      FragmentPosition
	frag     *BiomeFragment
	lastUsed uint64
}

// cacheSet is one of FragmentCache's NumSets independent, mutex-protected
// buckets. index maps a position's xxhash digest to a candidate slot so the
// common case avoids scanning all Ways slots; because Ways is tiny, a full
// scan is still always used as a fallback (hash collisions, or index
// entries left stale by eviction) rather than maintaining a remove path on
// the int-int map.
type cacheSet struct {
	mu    sync.Mutex
	slots [Ways]cacheSlot
	count int
	tick  uint64
	index *intintmap.Map
}

func newCacheSet() *cacheSet {
	return &cacheSet{index: intintmap.New(Ways*2, 0.75)}
}

// lookup must be called with s.mu held. It returns the slot for pos, if
// present.
func (s *cacheSet) lookup(pos FragmentPosition) (*cacheSlot, bool) {
	key := posHashKey(pos)
	if idx, ok := s.index.Get(key); ok && idx >= 0 && idx < Ways {
		if sl := &s.slots[idx]; sl.valid && sl.pos == pos {
			return sl, true
		}
	}
	for i := range s.slots {
		if s.slots[i].valid && s.slots[i].pos == pos {
			s.index.Put(key, int64(i))
			return &s.slots[i], true
		}
	}
	return nil, false
}

// insert must be called with s.mu held and the caller must have verified
// pos is not already present. frag's refcount already accounts for the
// cache's own reference.
func (s *cacheSet) insert(pos FragmentPosition, frag *BiomeFragment) {
	slotIdx := -1
	if s.count < Ways {
		for i := range s.slots {
			if !s.slots[i].valid {
				slotIdx = i
				break
			}
		}
		s.count++
	} else {
		slotIdx = s.lruIndex()
		s.slots[slotIdx].frag.Release()
	}
	s.tick++
	s.slots[slotIdx] = cacheSlot{valid: true, pos: pos, frag: frag, lastUsed: s.tick}
	s.index.Put(posHashKey(pos), int64(slotIdx))
}

// lruIndex must be called with s.mu held and s.count == Ways.
func (s *cacheSet) lruIndex() int {
	best := 0
	for i := 1; i < Ways; i++ {
		if s.slots[i].lastUsed < s.slots[best].lastUsed {
			best = i
		}
	}
	return best
}

// touch marks the slot as most-recently-used. Must be called with s.mu held.
func (s *cacheSet) touch(sl *cacheSlot) {
	s.tick++
	sl.lastUsed = s.tick
}

// clear releases every slot's cache-owned reference and empties the set.
// Must be called with s.mu held.
func (s *cacheSet) clear() {
	for i := range s.slots {
		if s.slots[i].valid {
			s.slots[i].frag.Release()
			s.slots[i] = cacheSlot{}
		}
	}
	s.count = 0
}

// FragmentCache is a set-associative, power-of-two-indexed cache of
// BiomeFragments with LRU-within-set eviction. The cache holds exactly one
// reference per occupied slot; findOrCreate hands callers an additional
// reference of their own via onHit.
type FragmentCache struct {
	sets [NumSets]*cacheSet
	sf   singleflight.Group
}

// NewFragmentCache returns an empty cache.
func NewFragmentCache() *FragmentCache {
	c := &FragmentCache{}
	for i := range c.sets {
		c.sets[i] = newCacheSet()
	}
	return c
}

// findOrCreate returns the fragment for pos, producing it with producer on a
// miss. onHit is called exactly once, with the lock released, to let the
// caller record its own reference (typically BiomeFragment.Acquire).
//
// Concurrent calls for the same pos are collapsed by a singleflight group
// keyed on pos so producer runs at most once per miss; the set's mutex is
// still used to make the final insert-or-discard decision, which is the
// "recheck after produce" step that guards against any other source of a
// race inserting the same position first.
func (c *FragmentCache) findOrCreate(pos FragmentPosition, producer producerFunc, onHit func(*BiomeFragment)) *BiomeFragment {
	set := c.sets[setIndex(pos)]

	set.mu.Lock()
	if sl, ok := set.lookup(pos); ok {
		set.touch(sl)
		frag := sl.frag
		set.mu.Unlock()
		onHit(frag)
		return frag
	}
	set.mu.Unlock()

	sfKey := fmt.Sprintf("%d:%d:%d:%d", pos.X, pos.Y, pos.Z, pos.VoxelSize)
	v, _, _ := c.sf.Do(sfKey, func() (interface{}, error) {
		return producer(pos), nil
	})
	frag := v.(*BiomeFragment)

	set.mu.Lock()
	if sl, ok := set.lookup(pos); ok {
		winner := sl.frag
		set.touch(sl)
		set.mu.Unlock()
		if winner != frag {
			// Someone else's producer call won the race; drop the cache's
			// reference on our fragment, it never became visible.
			frag.Release()
		}
		onHit(winner)
		return winner
	}
	set.insert(pos, frag)
	set.mu.Unlock()
	onHit(frag)
	return frag
}

// clear releases every slot of every set. Called by CaveBiomeService.Deinit.
func (c *FragmentCache) clear() {
	for _, s := range c.sets {
		s.mu.Lock()
		s.clear()
		s.mu.Unlock()
	}
}
