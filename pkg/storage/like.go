package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

type Like struct {
	TrackID   string `gorm:"primarykey"`
	CreatedAt time.Time
}

// SaveLike records or removes a like for the track.
func (s *Store) SaveLike(ctx context.Context, trackID string, liked bool) error {
	db := s.db.WithContext(ctx)
	if !liked {
		if err := db.Delete(&Like{}, "track_id = ?", trackID).Error; err != nil {
			return fmt.Errorf("storage: failed to delete like %s: %w", trackID, err)
		}
		return nil
	}
	v := &Like{
		TrackID:   trackID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set like %s: %w", trackID, err)
	}
	return nil
}

func (s *Store) ListLikes(ctx context.Context) ([]*Like, error) {
	vs := []*Like{}
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list likes: %w", err)
	}
	return vs, nil
}
