package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/library"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ library.Store = (*Store)(nil)

type Track struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Position is the insertion order. Higher values are more recent.
	Position int64 `gorm:"index;not null;default:0"`

	Title    string  `gorm:"not null;default:''"`
	Artist   string  `gorm:"not null;default:''"`
	Genre    string  `gorm:"not null;default:''"`
	Cover    string  `gorm:"not null;default:''"`
	AudioURL string  `gorm:"not null;default:''"`
	Duration float64 `gorm:"not null;default:0"`
	Prompt   string  `gorm:"not null;default:''"`
}

func fromTrack(t music.Track) *Track {
	return &Track{
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		Title:     t.Title,
		Artist:    t.Artist,
		Genre:     t.Genre,
		Cover:     t.Cover,
		AudioURL:  t.AudioURL,
		Duration:  t.Duration,
		Prompt:    t.Prompt,
	}
}

func (v *Track) Track() music.Track {
	return music.Track{
		ID:        v.ID,
		Title:     v.Title,
		Artist:    v.Artist,
		Genre:     v.Genre,
		Cover:     v.Cover,
		AudioURL:  v.AudioURL,
		Duration:  v.Duration,
		Prompt:    v.Prompt,
		CreatedAt: v.CreatedAt.UTC(),
	}
}

func (s *Store) GetTrack(ctx context.Context, id string) (*Track, error) {
	var v Track
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get track %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Like{}, "track_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Track{ID: id}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("storage: failed to delete track %s: %w", id, err)
	}
	return nil
}

// ListTracks returns tracks most recent first.
func (s *Store) ListTracks(ctx context.Context, page, size int, filter ...Filter) ([]*Track, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Track{}

	q := s.db.WithContext(ctx).Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if err := q.Order("position desc").Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list tracks: %w", err)
	}
	return vs, nil
}

// SaveTracks inserts the tracks in a single transaction. Tracks that already
// exist are left untouched. Tracks are given increasing positions in slice
// order, so the last one is the most recent.
func (s *Store) SaveTracks(ctx context.Context, tracks []music.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var max struct{ Position int64 }
		if err := tx.Model(&Track{}).Select("coalesce(max(position), 0) as position").Scan(&max).Error; err != nil {
			return err
		}
		for i, t := range tracks {
			v := fromTrack(t)
			v.Position = max.Position + int64(i) + 1
			if v.CreatedAt.IsZero() {
				v.CreatedAt = time.Now().UTC()
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(v).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: failed to save tracks: %w", err)
	}
	return nil
}

// LoadLibrary returns every stored track, most recent first, and the liked
// track ids.
func (s *Store) LoadLibrary(ctx context.Context) (*library.Snapshot, error) {
	var vs []*Track
	if err := s.db.WithContext(ctx).Order("position desc").Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to load tracks: %w", err)
	}
	likes, err := s.ListLikes(ctx)
	if err != nil {
		return nil, err
	}
	snap := &library.Snapshot{}
	for _, v := range vs {
		snap.Tracks = append(snap.Tracks, v.Track())
	}
	for _, l := range likes {
		snap.LikedIDs = append(snap.LikedIDs, l.TrackID)
	}
	return snap, nil
}
