package library

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
)

// RecentWindow is how far back the recent filter reaches.
const RecentWindow = 7 * 24 * time.Hour

type Filter string

const (
	All    Filter = "all"
	Recent Filter = "recent"
	Liked  Filter = "liked"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return All, nil
	case All, Recent, Liked:
		return f, nil
	default:
		return "", fmt.Errorf("library: invalid filter %q", s)
	}
}

// Snapshot is the persisted library. Tracks are most recent first.
type Snapshot struct {
	Tracks   []music.Track
	LikedIDs []string
}

// Store persists the library.
type Store interface {
	LoadLibrary(ctx context.Context) (*Snapshot, error)
	// SaveTracks stores tracks in insertion order, the last one being the
	// most recent.
	SaveTracks(ctx context.Context, tracks []music.Track) error
	SaveLike(ctx context.Context, trackID string, liked bool) error
}

// Library holds user created tracks, most recent first, and liked track ids.
type Library struct {
	mu     sync.RWMutex
	store  Store
	tracks []music.Track
	index  map[string]int
	liked  map[string]struct{}
	now    func() time.Time
}

// New returns an empty library. A nil store keeps everything in memory.
func New(store Store) *Library {
	return &Library{
		store: store,
		index: map[string]int{},
		liked: map[string]struct{}{},
		now:   time.Now,
	}
}

// Load replaces the in-memory state with the persisted one.
func (l *Library) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	snap, err := l.store.LoadLibrary(ctx)
	if err != nil {
		return fmt.Errorf("library: couldn't load: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracks = nil
	l.index = map[string]int{}
	for _, t := range snap.Tracks {
		if _, ok := l.index[t.ID]; ok {
			continue
		}
		l.index[t.ID] = len(l.tracks)
		l.tracks = append(l.tracks, t)
	}
	l.liked = map[string]struct{}{}
	for _, id := range snap.LikedIDs {
		l.liked[id] = struct{}{}
	}
	return nil
}

func (l *Library) AddTrack(ctx context.Context, t music.Track) (bool, error) {
	n, err := l.AddTracks(ctx, []music.Track{t})
	return n == 1, err
}

// AddTracks adds the tracks as if each were prepended in order, so the last
// one ends up first. Known ids are skipped. The new tracks are persisted
// before they become visible and nothing is added if persisting fails.
func (l *Library) AddTracks(ctx context.Context, tracks []music.Track) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var add []music.Track
	seen := map[string]struct{}{}
	for _, t := range tracks {
		if _, ok := l.index[t.ID]; ok {
			continue
		}
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		add = append(add, t)
	}
	if len(add) == 0 {
		return 0, nil
	}
	if l.store != nil {
		if err := l.store.SaveTracks(ctx, add); err != nil {
			return 0, fmt.Errorf("library: couldn't save tracks: %w", err)
		}
	}

	next := make([]music.Track, 0, len(add)+len(l.tracks))
	for i := len(add) - 1; i >= 0; i-- {
		next = append(next, add[i])
	}
	next = append(next, l.tracks...)
	l.tracks = next
	l.index = make(map[string]int, len(next))
	for i, t := range next {
		l.index[t.ID] = i
	}
	return len(add), nil
}

// Tracks returns a copy of the tracks matching the filter, most recent
// first.
func (l *Library) Tracks(f Filter) []music.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cutoff := l.now().Add(-RecentWindow)
	var out []music.Track
	for _, t := range l.tracks {
		switch f {
		case Recent:
			if t.CreatedAt.Before(cutoff) {
				continue
			}
		case Liked:
			if _, ok := l.liked[t.ID]; !ok {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func (l *Library) Get(id string) (music.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return music.Track{}, false
	}
	return l.tracks[i], true
}

func (l *Library) IsLiked(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.liked[id]
	return ok
}

// ToggleLike flips the like of a track and returns the new value. Tracks
// outside the library can be liked too.
func (l *Library) ToggleLike(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, liked := l.liked[id]
	liked = !liked
	if l.store != nil {
		if err := l.store.SaveLike(ctx, id, liked); err != nil {
			return !liked, fmt.Errorf("library: couldn't save like: %w", err)
		}
	}
	if liked {
		l.liked[id] = struct{}{}
	} else {
		delete(l.liked, id)
	}
	return liked, nil
}

// LikedIDs returns the liked ids in library order; likes of tracks outside
// the library come last.
func (l *Library) LikedIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var ids []string
	seen := map[string]struct{}{}
	for _, t := range l.tracks {
		if _, ok := l.liked[t.ID]; ok {
			ids = append(ids, t.ID)
			seen[t.ID] = struct{}{}
		}
	}
	var rest []string
	for id := range l.liked {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}
