package models

// MemberStatus values stored in the members.status column.
const (
	StatusActive = "active"
)

// Membership category labels. Matching is by substring ("Family Plus" counts as
// a family membership), so these are the canonical labels, not an exhaustive enum.
const (
	MembershipTypeSolo   = "Solo"
	MembershipTypeFamily = "Family"
)

// AttendanceStatus represents the outcome recorded for a scan.
type AttendanceStatus string

const (
	AttendanceGranted AttendanceStatus = "granted"
	AttendanceDenied  AttendanceStatus = "denied"
)

// PointsPerScan is the fixed loyalty award for a successful scan.
const PointsPerScan = 10

// ExpiringWindowDays is the rolling window used by the expiring-soon reports.
const ExpiringWindowDays = 30

// MinPasswordLength is the minimum accepted length for a new password.
const MinPasswordLength = 6

// Default admin account seeded when the members table has no admin rows.
const (
	DefaultAdminEmail        = "admin@schoolsystem.com"
	DefaultAdminPassword     = "Admin123!"
	DefaultAdminMemberNumber = "M0000"
)

// Field length constraints for request validation.
const (
	MaxNameLength  = 255
	MaxEmailLength = 320 // RFC 3696 specification
	MaxPhoneLength = 15  // E.164 format
	MaxEventLength = 255
)
