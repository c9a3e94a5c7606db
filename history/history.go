// Package history records finished searches in a small sqlite database so
// past runs can be listed later. It is a run log only: searches never read it.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"disk-search/search"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// insertBatch keeps each INSERT well under sqlite's bound-variable limit.
const insertBatch = 200

type RunModel struct {
	ID           string        `gorm:"primaryKey" json:"id"`
	Root         string        `json:"root"`
	Keywords     string        `json:"keywords"`
	MatchContent bool          `json:"match_content"`
	State        string        `json:"state"`
	Error        string        `json:"error,omitempty"`
	Matches      int           `json:"matches"`
	FilesChecked int64         `json:"files_checked"`
	DirsListed   int64         `json:"dirs_listed"`
	StartTime    time.Time     `gorm:"index" json:"start_time"`
	Duration     time.Duration `json:"duration"`
	Results      []MatchModel  `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"results,omitempty"`
}

type MatchModel struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	RunID    string    `gorm:"index" json:"-"`
	Kind     string    `json:"kind"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	FullPath string    `json:"full_path"`
	Modified time.Time `json:"modified"`
}

// Store wraps the database. Writers take an inter-process file lock next to
// the database so concurrent CLI invocations don't interleave.
type Store struct {
	db   *gorm.DB
	lock *flock.Flock
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&RunModel{}, &MatchModel{}); err != nil {
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return &Store{db: db, lock: flock.New(path + ".lock")}, nil
}

// Record stores one finished run with its results and returns the run ID.
func (s *Store) Record(req search.Request, out search.Outcome, results []search.MatchResult, started time.Time) (string, error) {
	run := RunModel{
		ID:           uuid.New().String(),
		Root:         req.Root,
		Keywords:     strings.Join(req.Keywords, ","),
		MatchContent: req.MatchContent,
		State:        out.State.String(),
		Matches:      out.Count,
		FilesChecked: out.FilesChecked,
		DirsListed:   out.DirsListed,
		StartTime:    started,
		Duration:     out.Elapsed,
	}
	if out.Err != nil {
		run.Error = out.Err.Error()
	}

	matches := make([]MatchModel, 0, len(results))
	for _, r := range results {
		matches = append(matches, MatchModel{
			RunID:    run.ID,
			Kind:     r.Kind.String(),
			Name:     r.Name,
			Size:     r.Size,
			FullPath: r.FullPath,
			Modified: r.Modified,
		})
	}

	if err := s.lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to acquire history lock: %w", err)
	}
	defer s.lock.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Results").Create(&run).Error; err != nil {
			return err
		}
		if len(matches) == 0 {
			return nil
		}
		return tx.CreateInBatches(matches, insertBatch).Error
	})
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// List returns the most recent runs first, without their results.
// limit <= 0 returns every run.
func (s *Store) List(limit int) ([]RunModel, error) {
	var runs []RunModel
	q := s.db.Order("start_time desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get loads one run including its results. id may be a unique prefix.
func (s *Store) Get(id string) (*RunModel, error) {
	var runs []RunModel
	err := s.db.Preload("Results", func(db *gorm.DB) *gorm.DB {
		return db.Order("kind, name, full_path")
	}).Where("id LIKE ?", id+"%").Limit(2).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
