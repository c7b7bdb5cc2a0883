package crmap

import lru "github.com/hashicorp/golang-lru"

// UpdateCache caches decoded updates loaded by content name. Cached
// updates are shared and must not be modified.
type UpdateCache interface {
	// Add adds a freshly-stored or loaded update to the cache.
	Add(key, value interface{})
	// Contains indicates the update with the given name has already been stored.
	Contains(key interface{}) bool
	// Get retrieves the already-decoded update with the given name, if cached.
	Get(key interface{}) (value interface{}, ok bool)
}

// NewUpdateCache creates a new LRU-based update cache of the given size.
// One cache can be shared by any number of documents.
func NewUpdateCache(size int) UpdateCache {
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}
