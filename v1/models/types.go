package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LoginRequest carries the credentials for /api/login. The email field also
// accepts a local phone number (exactly 10 digits with a leading zero).
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful authentication. Member includes
// family members when the membership category covers dependents.
type LoginResponse struct {
	Success bool    `json:"success"`
	Token   string  `json:"token"`
	Role    Role    `json:"role"`
	Member  *Member `json:"member"`
}

// ChangePasswordRequest carries a self-service password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ScanRequest carries a scanned identifier and the event it was scanned for.
type ScanRequest struct {
	MemberNumber string `json:"member_number"`
	EventName    string `json:"event_name"`
}

// ScanResponse reports the outcome of an attendance scan.
type ScanResponse struct {
	Success       bool             `json:"success"`
	Status        AttendanceStatus `json:"status"`
	MemberName    string           `json:"member_name"`
	PointsAwarded int              `json:"points_awarded"`
	Message       string           `json:"message"`
	Timestamp     time.Time        `json:"timestamp"`
}

// MemberInfoResponse is the lookup-without-recording result used by the scan
// confirmation screen.
type MemberInfoResponse struct {
	Found          bool      `json:"found"`
	MemberNumber   string    `json:"member_number"`
	MemberName     string    `json:"member_name,omitempty"`
	IsActive       bool      `json:"is_active,omitempty"`
	ExpiryDate     time.Time `json:"expiry_date,omitempty"`
	Status         string    `json:"status,omitempty"`
	MembershipType string    `json:"membership_type,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// ProfileResponse is the self-service profile view: the member, its
// dependents, and the most recent attendance covering both.
type ProfileResponse struct {
	Member        *Member            `json:"member"`
	FamilyMembers []FamilyMember     `json:"family_members"`
	Attendance    []AttendanceRecord `json:"attendance"`
}

// AdminMemberRow is a member listing row with per-member counts.
type AdminMemberRow struct {
	Member
	FamilyMemberCount int `json:"family_member_count"`
	AttendanceCount   int `json:"attendance_count"`
}

// CreateAdminRequest carries the fields for creating a new admin account.
// MemberNumber is optional; the next free number is assigned when omitted.
type CreateAdminRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	Surname      string `json:"surname"`
	MemberNumber string `json:"member_number"`
}

// ImportFamilyRow is a dependent row inside a bulk import payload.
type ImportFamilyRow struct {
	MemberNumber string `json:"member_number"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	PhotoURL     string `json:"photo_url"`
}

// ImportMemberRow is one member row of a bulk import payload, typically
// produced from a roster spreadsheet by the admin frontend.
type ImportMemberRow struct {
	MemberNumber   string            `json:"member_number"`
	FirstName      string            `json:"first_name"`
	Surname        string            `json:"surname"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	MembershipType string            `json:"membership_type"`
	ExpiryDate     string            `json:"expiry_date"`
	Status         string            `json:"status"`
	PhotoURL       string            `json:"photo_url"`
	IsAdmin        FlexibleBool      `json:"is_admin"`
	FamilyMembers  []ImportFamilyRow `json:"family_members"`
}

// ImportRequest wraps the bulk import payload.
type ImportRequest struct {
	Members []ImportMemberRow `json:"members"`
}

// ImportResponse summarizes a bulk import: rows that failed are reported
// individually, the rest are counted.
type ImportResponse struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// StatsResponse is the admin dashboard aggregate, computed fresh per request.
type StatsResponse struct {
	ActiveMembers     int64 `json:"active_members"`
	ExpiringSoon      int64 `json:"expiring_soon"`
	FamilyMemberships int64 `json:"family_memberships"`
	SoloMemberships   int64 `json:"solo_memberships"`
	TodayAttendance   int64 `json:"today_attendance"`
	TotalPoints       int64 `json:"total_points"`
}

// CollectionResponse is the standard list envelope.
type CollectionResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

// FlexibleBool unmarshals the loose truthiness found in spreadsheet exports:
// JSON booleans, numbers, and strings like "yes", "true", "1" or "admin".
type FlexibleBool bool

// UnmarshalJSON implements custom unmarshaling to handle bool, number and string inputs
func (f *FlexibleBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexibleBool(b)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleBool(n != 0)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "true", "1", "admin":
			*f = FlexibleBool(true)
		default:
			*f = FlexibleBool(false)
		}
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleBool", string(data))
}

// Bool converts to a plain bool.
func (f FlexibleBool) Bool() bool {
	return bool(f)
}

// expiryLayouts are the accepted formats for imported expiry dates.
var expiryLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseExpiryDate parses an expiry date from an import row or request body.
// Date-only values are interpreted as midnight UTC.
func ParseExpiryDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("expiry date is required")
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid expiry date %q (expected YYYY-MM-DD or RFC3339)", value)
}
