package quotes

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
)

const defaultCacheSize = 4096

// CacheObserver receives cache hit and miss notifications.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

type cacheKey struct {
	itemID string
	hash   uint64
}

type cacheEntry struct {
	lowest decimal.Decimal
	ok     bool
}

// Resolver memoizes Lowest. Entries are keyed by the item id and a content
// hash of that item's vendor quotes, so editing any quote of an item changes
// its key while edits to other items leave it untouched.
type Resolver struct {
	entries  *lru.Cache[cacheKey, cacheEntry]
	observer CacheObserver
}

// NewResolver builds a bounded resolver. size <= 0 uses the default.
func NewResolver(size int, observer CacheObserver) *Resolver {
	if size <= 0 {
		size = defaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		panic(err)
	}
	return &Resolver{entries: entries, observer: observer}
}

// Lowest returns the same result as the package-level Lowest.
func (r *Resolver) Lowest(itemID string, details Details) (decimal.Decimal, bool) {
	if r == nil {
		return Lowest(itemID, details)
	}
	key := cacheKey{itemID: itemID, hash: hashQuotes(details[itemID].VendorQuotes)}
	if entry, ok := r.entries.Get(key); ok {
		r.hit()
		return entry.lowest, entry.ok
	}

	r.miss()
	lowest, ok := Lowest(itemID, details)
	r.entries.Add(key, cacheEntry{lowest: lowest, ok: ok})
	return lowest, ok
}

// Len reports the number of cached entries.
func (r *Resolver) Len() int {
	return r.entries.Len()
}

func (r *Resolver) hit() {
	if r.observer != nil {
		r.observer.CacheHit()
	}
}

func (r *Resolver) miss() {
	if r.observer != nil {
		r.observer.CacheMiss()
	}
}

func hashQuotes(vendorQuotes map[string]VendorQuote) uint64 {
	vendorIDs := make([]string, 0, len(vendorQuotes))
	for vendorID := range vendorQuotes {
		vendorIDs = append(vendorIDs, vendorID)
	}
	sort.Strings(vendorIDs)

	h := xxhash.New()
	for _, vendorID := range vendorIDs {
		_, _ = h.WriteString(vendorID)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(vendorQuotes[vendorID].Quote)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
