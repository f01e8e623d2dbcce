package models

import (
	"strings"
	"time"
)

// Member represents a primary account holder with login credentials.
type Member struct {
	ID             uint           `gorm:"primarykey" json:"-"`
	MemberNumber   string         `gorm:"column:member_number;not null;unique" json:"member_number"`
	FirstName      string         `gorm:"column:first_name;not null" json:"first_name"`
	Surname        string         `gorm:"column:surname;not null" json:"surname"`
	Email          string         `gorm:"column:email;not null;unique" json:"email"`
	Phone          string         `gorm:"column:phone" json:"phone"`
	PasswordHash   string         `gorm:"column:password_hash;not null" json:"-"`
	MembershipType string         `gorm:"column:membership_type;not null" json:"membership_type"`
	ExpiryDate     time.Time      `gorm:"column:expiry_date;not null" json:"expiry_date"`
	Status         string         `gorm:"column:status;not null" json:"status"`
	PhotoURL       string         `gorm:"column:photo_url" json:"photo_url"`
	Points         int            `gorm:"column:points;not null;default:0" json:"points"`
	IsAdmin        bool           `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	FamilyMembers  []FamilyMember `gorm:"foreignKey:PrimaryMemberID" json:"family_members,omitempty"`
	BaseModel
}

// TableName sets the table name for GORM
func (Member) TableName() string {
	return "members"
}

// FullName returns the display name used on attendance records.
func (m *Member) FullName() string {
	return m.FirstName + " " + m.Surname
}

// Role maps the admin flag to a session role.
func (m *Member) Role() Role {
	if m.IsAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// IsActive reports whether the membership grants access at the given instant.
// An expiry exactly equal to now does not count as active.
func (m *Member) IsActive(now time.Time) bool {
	return m.Status == StatusActive && m.ExpiryDate.After(now)
}

// HasFamilyMembership reports whether the membership category covers
// dependents. Matching is a case-insensitive substring check because imported
// rosters carry variants like "Family" and "Family Plus".
func (m *Member) HasFamilyMembership() bool {
	return strings.Contains(strings.ToLower(m.MembershipType), "family")
}

// FamilyMember is a dependent covered by a primary Member. Dependents carry
// their own scan identifier but no credentials and no point balance.
type FamilyMember struct {
	ID              uint   `gorm:"primarykey" json:"-"`
	PrimaryMemberID uint   `gorm:"column:primary_member_id;not null;index" json:"-"`
	MemberNumber    string `gorm:"column:member_number;not null;unique" json:"member_number"`
	Name            string `gorm:"column:name;not null" json:"name"`
	Relationship    string `gorm:"column:relationship" json:"relationship"`
	PhotoURL        string `gorm:"column:photo_url" json:"photo_url"`
	BaseModel
}

// TableName sets the table name for GORM
func (FamilyMember) TableName() string {
	return "family_members"
}
