package store

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/pkg/logger"
)

const (
	// DefaultViewLogRetentionDays is the default number of days to retain view logs
	DefaultViewLogRetentionDays = 30
	// DefaultViewLogCleanupSchedule runs the cleanup every day at 2:00 AM
	DefaultViewLogCleanupSchedule = "0 2 * * *"
)

// ViewLogCleanupService manages periodic cleanup of old view logs
type ViewLogCleanupService struct {
	store         ViewLogStore
	cron          *cron.Cron
	schedule      string
	retentionDays int
	entryID       cron.EntryID
	mu            sync.RWMutex
}

// NewViewLogCleanupService creates a new view log cleanup service
func NewViewLogCleanupService(store ViewLogStore, schedule string, retentionDays int) *ViewLogCleanupService {
	if retentionDays <= 0 {
		retentionDays = DefaultViewLogRetentionDays
	}
	if schedule == "" {
		schedule = DefaultViewLogCleanupSchedule
	}

	return &ViewLogCleanupService{
		store:         store,
		cron:          cron.New(),
		schedule:      schedule,
		retentionDays: retentionDays,
	}
}

// Start schedules the cleanup and runs one pass in the background
func (s *ViewLogCleanupService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(s.schedule, s.Cleanup)
	if err != nil {
		logger.Error("Failed to schedule view log cleanup", zap.Error(err))
		return err
	}
	s.entryID = entryID
	s.cron.Start()

	logger.Info("View log cleanup service started",
		zap.String("schedule", s.schedule),
		zap.Int("retention_days", s.retentionDays),
	)

	go s.Cleanup()
	return nil
}

// Stop stops the cleanup service gracefully
func (s *ViewLogCleanupService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		logger.Info("View log cleanup service stopped")
	}
}

// Cleanup deletes view logs older than the retention period
func (s *ViewLogCleanupService) Cleanup() {
	s.mu.RLock()
	days := s.retentionDays
	s.mu.RUnlock()

	startTime := time.Now()
	deleted, err := s.store.DeleteOlderThan(days)
	if err != nil {
		logger.Error("Failed to cleanup old view logs",
			zap.Int("retention_days", days),
			zap.Error(err),
		)
		return
	}

	logger.Info("View log cleanup completed",
		zap.Int64("deleted_count", deleted),
		zap.Int("retention_days", days),
		zap.Duration("duration", time.Since(startTime)),
	)
}

// SetRetentionDays updates the retention period (takes effect on next cleanup)
func (s *ViewLogCleanupService) SetRetentionDays(days int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if days <= 0 {
		days = DefaultViewLogRetentionDays
	}
	s.retentionDays = days
}

// RetentionDays returns the current retention period
func (s *ViewLogCleanupService) RetentionDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retentionDays
}
