package models

import "time"

// AttendanceRecord is an append-only log entry for a scan attempt. Records are
// written even when access is denied so denied attempts remain reportable;
// they are never updated, and are deleted only by a member cascade delete.
type AttendanceRecord struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	MemberNumber  string           `gorm:"column:member_number;not null;index" json:"member_number"`
	MemberName    string           `gorm:"column:member_name;not null" json:"member_name"`
	EventName     string           `gorm:"column:event_name" json:"event_name"`
	ScannedBy     string           `gorm:"column:scanned_by" json:"scanned_by"`
	Timestamp     time.Time        `gorm:"column:timestamp;not null;index" json:"timestamp"`
	PointsAwarded int              `gorm:"column:points_awarded;not null;default:0" json:"points_awarded"`
	Status        AttendanceStatus `gorm:"column:status;not null" json:"status"`
}

// TableName sets the table name for GORM
func (AttendanceRecord) TableName() string {
	return "attendance"
}
