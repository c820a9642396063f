package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	snap    Snapshot
	saved   [][]music.Track
	likes   map[string]bool
	saveErr error
}

func (m *memStore) LoadLibrary(context.Context) (*Snapshot, error) {
	s := m.snap
	return &s, nil
}

func (m *memStore) SaveTracks(_ context.Context, ts []music.Track) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, ts)
	return nil
}

func (m *memStore) SaveLike(_ context.Context, id string, liked bool) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.likes == nil {
		m.likes = map[string]bool{}
	}
	m.likes[id] = liked
	return nil
}

func ids(ts []music.Track) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestAddTracksOrder(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	l := New(store)

	added, err := l.AddTrack(ctx, music.Track{ID: "a"})
	require.NoError(t, err)
	assert.True(t, added)
	n, err := l.AddTracks(ctx, []music.Track{{ID: "b"}, {ID: "c"}, {ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{"c", "b", "a"}, ids(l.Tracks(All)))
	require.Len(t, store.saved, 2)
	assert.Equal(t, []string{"b", "c"}, ids(store.saved[1]))

	added, err = l.AddTrack(ctx, music.Track{ID: "c"})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 3, l.Len())
}

func TestAddTracksAtomic(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	l := New(store)

	_, err := l.AddTracks(context.Background(), []music.Track{{ID: "a"}, {ID: "b"}})
	assert.Error(t, err)
	assert.Empty(t, l.Tracks(All))
	_, ok := l.Get("a")
	assert.False(t, ok)
}

func TestToggleLikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	l := New(store)
	_, err := l.AddTrack(ctx, music.Track{ID: "a"})
	require.NoError(t, err)

	before := l.IsLiked("a")
	liked, err := l.ToggleLike(ctx, "a")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.True(t, store.likes["a"])
	assert.Equal(t, []string{"a"}, l.LikedIDs())

	liked, err = l.ToggleLike(ctx, "a")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, before, l.IsLiked("a"))
	assert.Empty(t, l.LikedIDs())
}

func TestToggleLikeStoreError(t *testing.T) {
	l := New(&memStore{saveErr: errors.New("locked")})
	liked, err := l.ToggleLike(context.Background(), "a")
	assert.Error(t, err)
	assert.False(t, liked)
	assert.False(t, l.IsLiked("a"))
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	l := New(nil)
	l.now = func() time.Time { return now }

	_, err := l.AddTracks(ctx, []music.Track{
		{ID: "old", CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "new", CreatedAt: now.Add(-time.Hour)},
	})
	require.NoError(t, err)
	_, err = l.ToggleLike(ctx, "old")
	require.NoError(t, err)

	assert.Equal(t, []string{"new", "old"}, ids(l.Tracks(All)))
	assert.Equal(t, []string{"new"}, ids(l.Tracks(Recent)))
	assert.Equal(t, []string{"old"}, ids(l.Tracks(Liked)))
}

func TestLoad(t *testing.T) {
	store := &memStore{snap: Snapshot{
		Tracks:   []music.Track{{ID: "b"}, {ID: "a"}, {ID: "b"}},
		LikedIDs: []string{"a", "gone"},
	}}
	l := New(store)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, []string{"b", "a"}, ids(l.Tracks(All)))
	assert.True(t, l.IsLiked("a"))
	assert.Equal(t, []string{"a", "gone"}, l.LikedIDs())
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, All, f)
	_, err = ParseFilter("popular")
	assert.Error(t, err)
}
