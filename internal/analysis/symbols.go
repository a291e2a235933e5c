package analysis

import (
	"sync"

	"github.com/ianlancetaylor/demangle"
)

// symbolCache memoises demangled names.
type symbolCache struct {
	mu       sync.RWMutex
	names    map[string]string
	hitCount map[string]int
}

var cache = &symbolCache{
	names:    make(map[string]string),
	hitCount: make(map[string]int),
}

// CachedDemangle demangles an Itanium C++ name, returning names that are
// not mangled unchanged.
func CachedDemangle(mangled string) string {
	if mangled == "" {
		return ""
	}
	cache.mu.RLock()
	if d, ok := cache.names[mangled]; ok {
		cache.mu.RUnlock()
		cache.mu.Lock()
		cache.hitCount[mangled]++
		cache.mu.Unlock()
		return d
	}
	cache.mu.RUnlock()

	d := demangle.Filter(mangled, demangle.NoClones)
	cache.mu.Lock()
	cache.names[mangled] = d
	cache.mu.Unlock()
	return d
}

// DemangleHits returns how often mangled was served from the cache.
func DemangleHits(mangled string) int {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return cache.hitCount[mangled]
}
