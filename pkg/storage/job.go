package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Job is a submitted generation request and its last known outcome.
type Job struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TaskID       string `gorm:"index;not null;default:''"`
	Prompt       string `gorm:"not null;default:''"`
	Style        string `gorm:"not null;default:''"`
	Title        string `gorm:"not null;default:''"`
	Instrumental bool   `gorm:"not null;default:false"`
	Status       string `gorm:"index;not null;default:''"`
	Error        string `gorm:"not null;default:''"`
}

// GetJob returns the job with the given id or task id.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	var v Job
	if err := s.db.WithContext(ctx).First(&v, "id = ? OR task_id = ?", id, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get job %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetJob(ctx context.Context, v *Job) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set job %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) ListJobs(ctx context.Context, page, size int, filter ...Filter) ([]*Job, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Job{}

	q := s.db.WithContext(ctx).Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if err := q.Order("created_at desc").Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list jobs: %w", err)
	}
	return vs, nil
}
