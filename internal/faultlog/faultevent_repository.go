package faultlog

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FaultEventRepository provides database operations for fault events
type FaultEventRepository struct {
	db *gorm.DB
}

// NewFaultEventRepository creates a new repository instance
func NewFaultEventRepository(db *gorm.DB) *FaultEventRepository {
	return &FaultEventRepository{db: db}
}

// Record stores one event
func (r *FaultEventRepository) Record(event *FaultEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Kind == "" {
		event.Kind = KindUnknown
	}
	event.CreatedAt = time.Now()
	return r.db.Create(event).Error
}

// RecordBatch stores several events in one transaction. A recovery pass
// over a degraded segment emits one event per affected slave.
func (r *FaultEventRepository) RecordBatch(events []FaultEvent) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range events {
			if events[i].Kind == "" {
				events[i].Kind = KindUnknown
			}
			events[i].CreatedAt = now
			if err := tx.Create(&events[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the total number of journaled events
func (r *FaultEventRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&FaultEvent{}).Count(&count).Error
	return count, err
}

// BySlave returns the most recent events for one slave
func (r *FaultEventRepository) BySlave(slave int, limit int) ([]FaultEvent, error) {
	var events []FaultEvent
	err := r.db.Where("slave = ?", slave).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// Since returns events recorded after the specified time
func (r *FaultEventRepository) Since(since time.Time, limit int) ([]FaultEvent, error) {
	var events []FaultEvent
	err := r.db.Where("created_at > ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// PurgeBefore removes events older than the specified time
func (r *FaultEventRepository) PurgeBefore(before time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", before).Delete(&FaultEvent{})
	return res.RowsAffected, res.Error
}

// GetStatistics returns basic journal statistics
func (r *FaultEventRepository) GetStatistics() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	count, err := r.Count()
	if err != nil {
		return nil, err
	}
	stats["total_events"] = count

	var latest FaultEvent
	err = r.db.Order("created_at DESC").First(&latest).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err != gorm.ErrRecordNotFound {
		stats["last_event"] = latest.CreatedAt
	}

	var kindStats []struct {
		Kind  string `json:"kind"`
		Count int    `json:"count"`
	}
	err = r.db.Model(&FaultEvent{}).
		Select("kind, COUNT(*) as count").
		Group("kind").
		Order("count DESC").
		Find(&kindStats).Error
	if err != nil {
		return nil, err
	}
	stats["by_kind"] = kindStats

	return stats, nil
}

// HealthCheck verifies the repository is working correctly
func (r *FaultEventRepository) HealthCheck() error {
	var count int64
	return r.db.Model(&FaultEvent{}).Count(&count).Error
}
