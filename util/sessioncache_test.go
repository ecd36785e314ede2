package util

import (
	"testing"
	"time"
)

func TestInitSessionCache(t *testing.T) {
	InitSessionCache(0)
	if sessionCache == nil {
		t.Fatal("Expected sessionCache to be initialized")
	}
	if sessionCache.capacity != 1000 {
		t.Errorf("Expected default capacity 1000, got %d", sessionCache.capacity)
	}

	InitSessionCache(50)
	if sessionCache.capacity != 50 {
		t.Errorf("Expected capacity 50, got %d", sessionCache.capacity)
	}
}

func TestSessionCacheGetSetDelete(t *testing.T) {
	InitSessionCache(3)
	later := time.Now().Add(time.Hour)

	if _, ok := SessionCacheGet("d1"); ok {
		t.Error("Expected cache miss for non-existent key")
	}

	SessionCacheSet("d1", "user1@example.com", later)
	email, ok := SessionCacheGet("d1")
	if !ok || email != "user1@example.com" {
		t.Errorf("Expected user1@example.com, got %q (ok=%v)", email, ok)
	}

	SessionCacheSet("d1", "updated@example.com", later)
	if email, _ := SessionCacheGet("d1"); email != "updated@example.com" {
		t.Errorf("Expected updated@example.com, got %q", email)
	}

	SessionCacheDelete("d1")
	if _, ok := SessionCacheGet("d1"); ok {
		t.Error("Expected d1 to be deleted")
	}
}

func TestSessionCacheExpiredEntry(t *testing.T) {
	InitSessionCache(3)
	SessionCacheSet("old", "user@example.com", time.Now().Add(-time.Second))

	if _, ok := SessionCacheGet("old"); ok {
		t.Error("Expected expired entry to miss")
	}
	if _, present := sessionCache.cache["old"]; present {
		t.Error("Expected expired entry to be dropped")
	}
}

func TestSessionCacheLRUOrdering(t *testing.T) {
	InitSessionCache(3)
	later := time.Now().Add(time.Hour)

	SessionCacheSet("d1", "user1@example.com", later)
	SessionCacheSet("d2", "user2@example.com", later)
	SessionCacheSet("d3", "user3@example.com", later)

	// Access d1 to make it recently used
	SessionCacheGet("d1")

	// Add d4, should evict d2 (least recently used)
	SessionCacheSet("d4", "user4@example.com", later)

	if _, ok := SessionCacheGet("d1"); !ok {
		t.Error("Expected d1 still in cache (recently accessed)")
	}
	if _, ok := SessionCacheGet("d2"); ok {
		t.Error("Expected d2 to be evicted")
	}
	if _, ok := SessionCacheGet("d3"); !ok {
		t.Error("Expected d3 still in cache")
	}
	if _, ok := SessionCacheGet("d4"); !ok {
		t.Error("Expected d4 in cache")
	}
}

func TestSessionCacheNotInitialized(t *testing.T) {
	sessionCache = nil
	SessionCacheSet("d1", "user@example.com", time.Now().Add(time.Hour))
	if _, ok := SessionCacheGet("d1"); ok {
		t.Error("Expected miss when cache is not initialized")
	}
	SessionCacheDelete("d1")
}
