package store

import (
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/petmvp/passportview/internal/model"
	"github.com/petmvp/passportview/pkg/errors"
)

// DefaultViewLogLimit is used when a query does not set a limit
const DefaultViewLogLimit = 50

// MaxViewLogLimit caps the page size of view log queries
const MaxViewLogLimit = 500

// ViewLogStore defines operations for ViewLog model.
type ViewLogStore interface {
	// Create creates a new view log entry
	Create(log *model.ViewLog) error

	// GetByRenderID retrieves the entry of one render
	GetByRenderID(renderID string) (*model.ViewLog, error)

	// List returns entries matching the query, newest first, and the total count
	List(query model.ViewLogQuery) ([]model.ViewLog, int64, error)

	// CountByStatus returns the number of entries per status for a passport
	CountByStatus(passportNumber string) (map[model.ViewStatus]int64, error)

	// DeleteOlderThan deletes entries older than the given number of days (for cleanup)
	DeleteOlderThan(days int) (int64, error)
}

// viewLogStore implements ViewLogStore using GORM.
type viewLogStore struct {
	db *gorm.DB
}

func newViewLogStore(db *gorm.DB) ViewLogStore {
	return &viewLogStore{db: db}
}

// Create creates a new view log entry.
func (s *viewLogStore) Create(log *model.ViewLog) error {
	return s.db.Create(log).Error
}

// GetByRenderID retrieves the entry of one render. A missing entry is an
// ErrCodeNotFound AppError that still wraps gorm.ErrRecordNotFound.
func (s *viewLogStore) GetByRenderID(renderID string) (*model.ViewLog, error) {
	var log model.ViewLog
	err := s.db.Where("render_id = ?", renderID).First(&log).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.ErrCodeNotFound, "view log not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// List returns entries matching the query, newest first.
func (s *viewLogStore) List(q model.ViewLogQuery) ([]model.ViewLog, int64, error) {
	var logs []model.ViewLog
	var total int64

	query := s.db.Model(&model.ViewLog{})
	if q.PassportNumber != "" {
		query = query.Where("passport_number = ?", q.PassportNumber)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultViewLogLimit
	}
	if limit > MaxViewLogLimit {
		limit = MaxViewLogLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	return logs, total, err
}

// CountByStatus returns the number of entries per status for a passport.
func (s *viewLogStore) CountByStatus(passportNumber string) (map[model.ViewStatus]int64, error) {
	var rows []struct {
		Status model.ViewStatus
		Count  int64
	}
	err := s.db.Model(&model.ViewLog{}).
		Select("status, COUNT(*) as count").
		Where("passport_number = ?", passportNumber).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ViewStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// DeleteOlderThan deletes entries older than the given number of days.
func (s *viewLogStore) DeleteOlderThan(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.Where("created_at < ?", cutoff).Delete(&model.ViewLog{})
	return result.RowsAffected, result.Error
}
