package record

import (
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// View is a committed Collection for one session.
type View struct {
	Generation uint64
	LoadedAt   time.Time
	Collection Collection
}

// ViewCache keeps the latest record view per session. Loads are tagged with
// a generation from Begin; Commit drops a load older than the view it would
// replace.
type ViewCache struct {
	seq   uint64
	mu    sync.Mutex
	views *cache.Cache
}

// NewViewCache keeps views for ttl after their last commit.
func NewViewCache(ttl time.Duration) *ViewCache {
	return &ViewCache{views: cache.New(ttl, 2*ttl)}
}

// Begin returns a generation token for a load that is about to start.
// Tokens increase monotonically across all sessions.
func (v *ViewCache) Begin() uint64 {
	return atomic.AddUint64(&v.seq, 1)
}

// Commit stores c for session unless a newer generation is already stored.
// It returns the view now held for the session and whether c was kept.
func (v *ViewCache) Commit(session string, gen uint64, c Collection) (View, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.views.Get(session); ok {
		if view := cur.(View); view.Generation > gen {
			return view, false
		}
	}
	view := View{Generation: gen, LoadedAt: time.Now(), Collection: c}
	v.views.SetDefault(session, view)
	return view, true
}

// Get returns the committed view for session.
func (v *ViewCache) Get(session string) (View, bool) {
	cur, ok := v.views.Get(session)
	if !ok {
		return View{}, false
	}
	return cur.(View), true
}

// Invalidate drops the session's view, e.g. on logout.
func (v *ViewCache) Invalidate(session string) {
	v.views.Delete(session)
}
