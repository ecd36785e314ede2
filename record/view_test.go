package record

import (
	"testing"
	"time"

	"github.com/ariebrainware/patient-portal/model"
	"github.com/stretchr/testify/assert"
)

func collectionWith(id string) Collection {
	return Collection{Records: []EnrichedLog{{Log: model.Log{ID: id}}}, Enriched: true, CategoriesResolved: true}
}

func TestViewCacheDiscardsStaleLoad(t *testing.T) {
	v := NewViewCache(time.Minute)
	older := v.Begin()
	newer := v.Begin()

	_, kept := v.Commit("s1", newer, collectionWith("new"))
	assert.True(t, kept)

	view, kept := v.Commit("s1", older, collectionWith("old"))
	assert.False(t, kept)
	assert.Equal(t, newer, view.Generation)
	assert.Equal(t, "new", view.Collection.Records[0].ID)

	got, ok := v.Get("s1")
	assert.True(t, ok)
	assert.Equal(t, "new", got.Collection.Records[0].ID)
}

func TestViewCacheNewerLoadReplaces(t *testing.T) {
	v := NewViewCache(time.Minute)
	first := v.Begin()
	v.Commit("s1", first, collectionWith("a"))

	second := v.Begin()
	view, kept := v.Commit("s1", second, collectionWith("b"))
	assert.True(t, kept)
	assert.Equal(t, "b", view.Collection.Records[0].ID)
}

func TestViewCacheSessionsAreIndependent(t *testing.T) {
	v := NewViewCache(time.Minute)
	g1 := v.Begin()
	g2 := v.Begin()
	v.Commit("s2", g2, collectionWith("two"))

	_, kept := v.Commit("s1", g1, collectionWith("one"))
	assert.True(t, kept)
}

func TestViewCacheInvalidate(t *testing.T) {
	v := NewViewCache(time.Minute)
	v.Commit("s1", v.Begin(), collectionWith("a"))
	v.Invalidate("s1")

	_, ok := v.Get("s1")
	assert.False(t, ok)
}
