package inference

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Registry hands out one Presenter per session key.
type Registry struct {
	mu         sync.Mutex
	uploader   Uploader
	presenters *cache.Cache
}

// NewRegistry keeps idle presenters for ttl.
func NewRegistry(u Uploader, ttl time.Duration) *Registry {
	return &Registry{uploader: u, presenters: cache.New(ttl, 2*ttl)}
}

// Get returns the session's presenter, creating it if needed.
func (r *Registry) Get(session string) *Presenter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.presenters.Get(session); ok {
		r.presenters.SetDefault(session, p)
		return p.(*Presenter)
	}
	p := NewPresenter(r.uploader)
	r.presenters.SetDefault(session, p)
	return p
}

// Peek returns the session's presenter without creating one.
func (r *Registry) Peek(session string) (*Presenter, bool) {
	p, ok := r.presenters.Get(session)
	if !ok {
		return nil, false
	}
	return p.(*Presenter), true
}

// Drop forgets the session's presenter.
func (r *Registry) Drop(session string) {
	r.presenters.Delete(session)
}
