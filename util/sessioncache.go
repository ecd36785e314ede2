package util

import (
	"container/list"
	"os"
	"strconv"
	"sync"
	"time"
)

// LRU cache for token digest -> session owner, consulted before Redis and the DB.
type sessionEntry struct {
	digest  string
	email   string
	expires time.Time
}

type sessionLRU struct {
	mu       sync.Mutex
	ll       *list.List
	cache    map[string]*list.Element
	capacity int
}

var sessionCache *sessionLRU

// InitSessionCache initializes the LRU cache with given capacity.
// If capacity <= 0, a default of 1000 is used.
func InitSessionCache(capacity int) {
	if capacity <= 0 {
		capacity = 1000
	}
	sessionCache = &sessionLRU{
		ll:       list.New(),
		cache:    make(map[string]*list.Element),
		capacity: capacity,
	}
}

// InitSessionCacheFromEnv initializes the cache using the env var SESSION_CACHE_SIZE
func InitSessionCacheFromEnv() {
	n, _ := strconv.Atoi(os.Getenv("SESSION_CACHE_SIZE"))
	InitSessionCache(n)
}

// SessionCacheGet returns the owner email when the digest is cached and unexpired.
// Expired entries are dropped on read.
func SessionCacheGet(digest string) (string, bool) {
	if sessionCache == nil {
		return "", false
	}
	sessionCache.mu.Lock()
	defer sessionCache.mu.Unlock()
	ele, ok := sessionCache.cache[digest]
	if !ok {
		return "", false
	}
	e := ele.Value.(sessionEntry)
	if !e.expires.After(time.Now()) {
		sessionCache.ll.Remove(ele)
		delete(sessionCache.cache, digest)
		return "", false
	}
	sessionCache.ll.MoveToFront(ele)
	return e.email, true
}

// SessionCacheSet records the owner of digest until expires.
func SessionCacheSet(digest, email string, expires time.Time) {
	if sessionCache == nil {
		return
	}
	sessionCache.mu.Lock()
	defer sessionCache.mu.Unlock()
	entry := sessionEntry{digest: digest, email: email, expires: expires}
	if ele, ok := sessionCache.cache[digest]; ok {
		sessionCache.ll.MoveToFront(ele)
		ele.Value = entry
		return
	}
	sessionCache.cache[digest] = sessionCache.ll.PushFront(entry)
	if sessionCache.ll.Len() > sessionCache.capacity {
		// evict least recently used
		if tail := sessionCache.ll.Back(); tail != nil {
			delete(sessionCache.cache, tail.Value.(sessionEntry).digest)
			sessionCache.ll.Remove(tail)
		}
	}
}

// SessionCacheDelete forgets digest, used on logout.
func SessionCacheDelete(digest string) {
	if sessionCache == nil {
		return
	}
	sessionCache.mu.Lock()
	defer sessionCache.mu.Unlock()
	if ele, ok := sessionCache.cache[digest]; ok {
		sessionCache.ll.Remove(ele)
		delete(sessionCache.cache, digest)
	}
}
