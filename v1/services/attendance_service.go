package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mhs-association/membership-backend/shared/monitoring"
	"github.com/mhs-association/membership-backend/v1/models"
)

// AttendanceService records scans and awards loyalty points.
type AttendanceService struct {
	db      *gorm.DB
	members *MemberService
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(db *gorm.DB, members *MemberService) *AttendanceService {
	return &AttendanceService{db: db, members: members}
}

// Scan resolves the scanned identifier, checks the owning member's standing,
// and appends an attendance record. Denied scans are recorded too; only an
// unknown identifier leaves no trace. Points go to the owning member even
// when a dependent was scanned.
func (s *AttendanceService) Scan(ctx context.Context, req *models.ScanRequest, scannedBy string) (*models.ScanResponse, error) {
	member, displayName, err := s.members.resolveMemberNumber(ctx, req.MemberNumber)
	if err != nil {
		return nil, err
	}

	now := nowFunc()
	active := member.IsActive(now)

	record := models.AttendanceRecord{
		MemberNumber: req.MemberNumber,
		MemberName:   displayName,
		EventName:    req.EventName,
		ScannedBy:    scannedBy,
		Timestamp:    now,
		Status:       models.AttendanceDenied,
	}
	if active {
		record.Status = models.AttendanceGranted
		record.PointsAwarded = models.PointsPerScan
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}
	if active {
		err := tx.Model(&models.Member{}).
			Where("id = ?", member.ID).
			Update("points", gorm.Expr("points + ?", models.PointsPerScan)).Error
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to award points: %w", err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	monitoring.RecordBusinessEvent("attendance_scan", string(record.Status))
	slog.Info("Attendance recorded",
		"memberNumber", req.MemberNumber,
		"status", record.Status,
		"scannedBy", scannedBy)

	resp := &models.ScanResponse{
		Success:       active,
		Status:        record.Status,
		MemberName:    displayName,
		PointsAwarded: record.PointsAwarded,
		Timestamp:     now,
	}
	if active {
		resp.Message = fmt.Sprintf("Welcome, %s!", displayName)
	} else {
		resp.Message = "Membership is not active"
	}
	return resp, nil
}

// RecentAttendance returns the newest records first, up to the given limit.
// Non-positive limits fall back to 100.
func (s *AttendanceService) RecentAttendance(ctx context.Context, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return records, nil
}
