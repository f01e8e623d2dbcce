package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mhs-association/membership-backend/v1/models"
)

// StatsService computes the admin dashboard aggregates. Nothing is cached;
// every call reflects the database as of now.
type StatsService struct {
	db *gorm.DB
}

// NewStatsService creates a new stats service
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// DashboardStats returns the headline numbers for the admin dashboard.
func (s *StatsService) DashboardStats(ctx context.Context) (*models.StatsResponse, error) {
	now := nowFunc()
	windowEnd := now.AddDate(0, 0, models.ExpiringWindowDays)
	dayStart, dayEnd := todayBounds(now)

	stats := &models.StatsResponse{}

	err := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("status = ? AND expiry_date > ?", models.StatusActive, now).
		Count(&stats.ActiveMembers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active members: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.Member{}).
		Where("status = ? AND expiry_date > ? AND expiry_date <= ?", models.StatusActive, now, windowEnd).
		Count(&stats.ExpiringSoon).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count expiring members: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.Member{}).
		Where("LOWER(membership_type) LIKE ?", "%family%").
		Count(&stats.FamilyMemberships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count family memberships: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.Member{}).
		Where("LOWER(membership_type) LIKE ?", "%solo%").
		Count(&stats.SoloMemberships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count solo memberships: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Where("timestamp >= ? AND timestamp < ?", dayStart, dayEnd).
		Count(&stats.TodayAttendance).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count today's attendance: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.Member{}).
		Select("COALESCE(SUM(points), 0)").Scan(&stats.TotalPoints).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum points: %w", err)
	}

	return stats, nil
}

// ExpiringMembers lists active members whose expiry falls within the rolling
// window, soonest first.
func (s *StatsService) ExpiringMembers(ctx context.Context) ([]models.Member, error) {
	now := nowFunc()
	windowEnd := now.AddDate(0, 0, models.ExpiringWindowDays)

	var members []models.Member
	err := s.db.WithContext(ctx).
		Where("status = ? AND expiry_date > ? AND expiry_date <= ?", models.StatusActive, now, windowEnd).
		Order("expiry_date").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring members: %w", err)
	}
	return members, nil
}

// todayBounds returns the half-open calendar-day interval containing t.
func todayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
