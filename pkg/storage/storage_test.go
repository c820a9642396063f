package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := New("sqlite", filepath.Join(t.TempDir(), "sunoclone.db"), false, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUnknownDBType(t *testing.T) {
	_, err := New("mongo", "", false, nil)
	assert.Error(t, err)
}

func TestMigrateTwice(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var migrations []Migration
	require.NoError(t, s.db.Find(&migrations).Error)
	require.Len(t, migrations, 1)
	assert.Equal(t, 0, migrations[0].Version)
	assert.True(t, s.db.Migrator().HasColumn(&Track{}, "cover"))
}

func TestLibraryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveTracks(ctx, []music.Track{
		{ID: "a", Title: "A", Duration: 185, AudioURL: "https://cdn/a.mp3", CreatedAt: created},
		{ID: "b", Title: "B", CreatedAt: created},
	}))
	require.NoError(t, s.SaveTracks(ctx, []music.Track{
		{ID: "c", Title: "C"},
		{ID: "a", Title: "changed"},
	}))
	require.NoError(t, s.SaveLike(ctx, "b", true))
	require.NoError(t, s.SaveLike(ctx, "b", true))

	snap, err := s.LoadLibrary(ctx)
	require.NoError(t, err)
	var ids []string
	for _, tr := range snap.Tracks {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
	assert.Equal(t, []string{"b"}, snap.LikedIDs)

	a := snap.Tracks[2]
	assert.Equal(t, "A", a.Title)
	assert.Equal(t, 185.0, a.Duration)
	assert.Equal(t, created, a.CreatedAt)

	require.NoError(t, s.SaveLike(ctx, "b", false))
	snap, err = s.LoadLibrary(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.LikedIDs)
}

func TestDeleteTrack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveTracks(ctx, []music.Track{{ID: "a"}}))
	require.NoError(t, s.SaveLike(ctx, "a", true))
	require.NoError(t, s.DeleteTrack(ctx, "a"))

	_, err := s.GetTrack(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	likes, err := s.ListLikes(ctx)
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestJobs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	job := &Job{ID: ulid.Make().String(), TaskID: "task-1", Prompt: "lofi rain", Status: "pending"}
	require.NoError(t, s.SetJob(ctx, job))

	got, err := s.GetJob(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	got.Status = "completed"
	require.NoError(t, s.SetJob(ctx, got))
	got, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)

	jobs, err := s.ListJobs(ctx, 1, 10, Where("status = ?", "completed"))
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettingValues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.GetValue(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetValue(ctx, "theme", "light"))
	require.NoError(t, s.SetValue(ctx, "theme", "dark"))
	v, ok, err := s.GetValue(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestFileRefs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SetFileRef(ctx, "a.mp3", "local:a.mp3"))
	require.NoError(t, s.SetFileRef(ctx, "a.mp3", "s3:a.mp3"))
	ref, err := s.GetFileRef(ctx, "a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "s3:a.mp3", ref)
}
