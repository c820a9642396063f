package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	open   gorm.Dialector
	db     *gorm.DB
	logger gormlogger.Interface
	log    *zap.Logger
}

func New(dbType, dbConn string, debug bool, log *zap.Logger) (*Store, error) {
	var open gorm.Dialector
	switch dbType {
	case "postgres":
		open = postgres.Open(dbConn)
	case "mysql":
		open = mysql.Open(dbConn)
	case "sqlite":
		open = sqlite.Open(dbConn)
	default:
		return nil, fmt.Errorf("storage: unknown db type: %s", dbType)
	}
	l := gormlogger.Default.LogMode(gormlogger.Silent)
	if debug {
		l = gormlogger.Default.LogMode(gormlogger.Warn)
	}
	return &Store{
		open:   open,
		logger: l,
		log:    logger.OrNop(log).Named("storage"),
	}, nil
}

func (s *Store) Start(ctx context.Context) error {
	// Launch the database connection in a goroutine so we can timeout if it
	// takes too long.
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	errC := make(chan error, 1)
	go func() {
		db, err := gorm.Open(s.open, &gorm.Config{
			Logger: s.logger,
		})
		if err != nil {
			errC <- fmt.Errorf("storage: failed to open database: %w", err)
			return
		}
		s.db = db
		errC <- nil
	}()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("storage: timed out opening database: %w", ctx.Err())
		}
		return ctx.Err()
	case err := <-errC:
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("storage: couldn't get database: %w", err)
	}
	return db.Close()
}

type seed struct {
	ID string `gorm:"primaryKey"`
}

func (s *seed) TableName() string {
	return "tracks"
}

func (s *Store) Migrate(ctx context.Context) error {
	// Initialize the database with a seed table
	init := !s.db.Migrator().HasTable(&Track{})

	// Custom migrations
	if err := s.customMigrate(init); err != nil {
		return err
	}

	// Auto migrations
	if init {
		if err := s.db.Migrator().CreateTable(&seed{}); err != nil {
			return fmt.Errorf("storage: failed to create table tracks: %w", err)
		}
	}
	if err := s.db.AutoMigrate(
		&Track{},
		&Like{},
		&Job{},
		&Setting{},
		&File{},
	); err != nil {
		return fmt.Errorf("storage: failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) customMigrate(init bool) error {
	lastVersion := 0

	if !s.db.Migrator().HasTable(&Migration{}) {
		if err := s.db.Migrator().CreateTable(&Migration{}); err != nil {
			return fmt.Errorf("storage: failed to create table migrations: %w", err)
		}
		var version int
		if init {
			version = lastVersion
		}
		if err := s.db.Save(&Migration{ID: ulid.Make().String(), Version: version}).Error; err != nil {
			return fmt.Errorf("storage: failed to save migration version: %w", err)
		}
		if init {
			return nil
		}
	}

	// Get the current migration version
	var migration Migration
	if err := s.db.First(&migration).Error; err != nil {
		return fmt.Errorf("storage: failed to get migration version: %w", err)
	}

	// Custom migrations
	for i := migration.Version + 1; i <= lastVersion; i++ {
		switch i {
		// TODO: Add next migration here and update lastVersion
		}
		s.log.Info("migration applied", zap.Int("version", i))
		migration.Version = i
		if err := s.db.Save(&migration).Error; err != nil {
			return fmt.Errorf("storage: failed to save migration version: %w", err)
		}
	}
	return nil
}

type Filter struct {
	Query interface{}
	Args  []interface{}
}

func Where(query interface{}, args ...interface{}) Filter {
	return Filter{
		Query: query,
		Args:  args,
	}
}
