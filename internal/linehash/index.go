package linehash

// Index is a set of line hashes keyed by Sum64. Colliding entries are told
// apart with Equal. The zero value is not usable; call NewIndex.
type Index struct {
	entries map[uint64][]entry
	size    int
}

type entry struct {
	hash  *LineHash
	count int
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{entries: make(map[uint64][]entry)}
}

// Add inserts h and reports whether it was not already present. Occurrences
// of an existing hash are counted. A nil hash is a valid member.
func (x *Index) Add(h *LineHash) bool {
	key := h.Sum64()
	bucket := x.entries[key]
	for i := range bucket {
		if bucket[i].hash.Equal(h) {
			bucket[i].count++
			return false
		}
	}
	x.entries[key] = append(bucket, entry{hash: h, count: 1})
	x.size++
	return true
}

// Count returns how many times h was added.
func (x *Index) Count(h *LineHash) int {
	for _, e := range x.entries[h.Sum64()] {
		if e.hash.Equal(h) {
			return e.count
		}
	}
	return 0
}

// Len returns the number of distinct hashes.
func (x *Index) Len() int {
	return x.size
}
