package cache

// Cache is a small replacement-policy cache. Eviction is always negotiated:
// the Victim candidate callback can veto removal of entries the caller
// still needs (pinned buffer frames, for example).
type Cache[K comparable, V any] interface {
	Get(K) (V, bool)
	Put(K, V)
	// Remove drops the entry unconditionally. Reports whether it was present.
	Remove(K) bool
	// Victim walks entries from least to most recently used and removes and
	// returns the first one the candidate callback accepts.
	Victim(candidate func(K, V) bool) (K, V, bool)
	// Range visits entries in most-recently-used order until the callback
	// returns false.
	Range(func(K, V) bool)
	Size() int
}
