package activity

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/voyara/backend/internal/models"
	"gorm.io/gorm"
)

// Logger writes the append-only affiliate activity trail. There is no
// update or delete; entries exist for compliance and debugging only and
// are never consulted for control decisions.
type Logger struct {
	db *gorm.DB
}

// NewLogger creates a new activity logger
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Record appends an activity entry
func (l *Logger) Record(affiliateID uuid.UUID, activityType models.ActivityType, description string, metadata map[string]interface{}) error {
	entry := newEntry(affiliateID, activityType, description, metadata)
	if err := l.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create activity log entry: %w", err)
	}
	return nil
}

// RecordTx appends an activity entry using the caller's transaction so the
// entry commits together with the mutation it describes. The insert runs
// under a savepoint: on postgres a failed statement poisons the whole
// transaction, and the rollback-to keeps a broken audit write from sinking
// the mutation the caller is committing.
func (l *Logger) RecordTx(tx *gorm.DB, affiliateID uuid.UUID, activityType models.ActivityType, description string, metadata map[string]interface{}) error {
	entry := newEntry(affiliateID, activityType, description, metadata)

	if err := tx.SavePoint("activity_entry").Error; err != nil {
		return fmt.Errorf("failed to create activity log savepoint: %w", err)
	}
	if err := tx.Create(&entry).Error; err != nil {
		if rbErr := tx.RollbackTo("activity_entry").Error; rbErr != nil {
			return fmt.Errorf("failed to create activity log entry: %w (savepoint rollback: %v)", err, rbErr)
		}
		return fmt.Errorf("failed to create activity log entry: %w", err)
	}

	return nil
}

func newEntry(affiliateID uuid.UUID, activityType models.ActivityType, description string, metadata map[string]interface{}) models.ActivityLog {
	return models.ActivityLog{
		ID:           uuid.New(),
		AffiliateID:  affiliateID,
		ActivityType: activityType,
		Description:  description,
		MetaData:     metadata,
	}
}

// RecordBestEffort appends an entry outside any transaction and only logs
// on failure. The primary state change must not be aborted because
// observability failed.
func (l *Logger) RecordBestEffort(affiliateID uuid.UUID, activityType models.ActivityType, description string, metadata map[string]interface{}) {
	if err := l.Record(affiliateID, activityType, description, metadata); err != nil {
		log.Printf("activity log write failed (type=%s affiliate=%s): %v", activityType, affiliateID, err)
	}
}

// Query returns activity entries for an affiliate, newest first
func (l *Logger) Query(affiliateID uuid.UUID, types []models.ActivityType, limit, offset int) ([]models.ActivityLog, int64, error) {
	var entries []models.ActivityLog
	var total int64

	query := l.db.Model(&models.ActivityLog{}).Where("affiliate_id = ?", affiliateID)
	if len(types) > 0 {
		query = query.Where("activity_type IN ?", types)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query activity logs: %w", err)
	}

	return entries, total, nil
}
