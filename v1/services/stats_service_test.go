package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhs-association/membership-backend/v1/models"
)

func TestStatsService_DashboardStats(t *testing.T) {
	ctx := context.Background()
	db := SetupSQLiteTestDB(t)
	service := NewStatsService(db)

	now := time.Now()
	createTestMember(t, db, models.Member{
		MemberNumber:   "M0001",
		FirstName:      "Jane",
		Surname:        "Perera",
		Email:          "jane@example.com",
		MembershipType: "Family",
		ExpiryDate:     now.AddDate(1, 0, 0),
		Points:         30,
	}, "secret123")
	createTestMember(t, db, models.Member{
		MemberNumber:   "M0002",
		FirstName:      "Nimal",
		Surname:        "Silva",
		Email:          "nimal@example.com",
		MembershipType: "Solo",
		ExpiryDate:     now.AddDate(0, 0, 10), // inside the expiring window
		Points:         10,
	}, "secret123")
	createTestMember(t, db, models.Member{
		MemberNumber:   "M0003",
		FirstName:      "Kumari",
		Surname:        "Fernando",
		Email:          "kumari@example.com",
		MembershipType: "Solo",
		ExpiryDate:     now.AddDate(0, 0, -5), // lapsed
	}, "secret123")

	require.NoError(t, db.Create(&models.AttendanceRecord{
		MemberNumber: "M0001",
		MemberName:   "Jane Perera",
		Timestamp:    now,
		Status:       models.AttendanceGranted,
	}).Error)
	require.NoError(t, db.Create(&models.AttendanceRecord{
		MemberNumber: "M0001",
		MemberName:   "Jane Perera",
		Timestamp:    now.AddDate(0, 0, -2),
		Status:       models.AttendanceGranted,
	}).Error)

	stats, err := service.DashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.ActiveMembers)
	assert.Equal(t, int64(1), stats.ExpiringSoon)
	assert.Equal(t, int64(1), stats.FamilyMemberships)
	assert.Equal(t, int64(2), stats.SoloMemberships)
	assert.Equal(t, int64(1), stats.TodayAttendance)
	assert.Equal(t, int64(40), stats.TotalPoints)
}

func TestStatsService_DashboardStats_EmptyDatabase(t *testing.T) {
	db := SetupSQLiteTestDB(t)
	service := NewStatsService(db)

	stats, err := service.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ActiveMembers)
	assert.Equal(t, int64(0), stats.TotalPoints)
}

func TestStatsService_ExpiringWindowBoundaries(t *testing.T) {
	ctx := context.Background()
	db := SetupSQLiteTestDB(t)
	service := NewStatsService(db)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return fixed }
	defer func() { nowFunc = time.Now }()

	createTestMember(t, db, models.Member{
		MemberNumber: "M0001",
		FirstName:    "Jane",
		Surname:      "Perera",
		Email:        "jane@example.com",
		ExpiryDate:   fixed.AddDate(0, 0, models.ExpiringWindowDays), // last day inside
	}, "secret123")
	createTestMember(t, db, models.Member{
		MemberNumber: "M0002",
		FirstName:    "Nimal",
		Surname:      "Silva",
		Email:        "nimal@example.com",
		ExpiryDate:   fixed, // expiring right now counts as lapsed
	}, "secret123")

	stats, err := service.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ExpiringSoon)
	assert.Equal(t, int64(1), stats.ActiveMembers)
}

func TestStatsService_ExpiringMembers(t *testing.T) {
	ctx := context.Background()
	db := SetupSQLiteTestDB(t)
	service := NewStatsService(db)

	now := time.Now()
	createTestMember(t, db, models.Member{
		MemberNumber: "M0001",
		FirstName:    "Jane",
		Surname:      "Perera",
		Email:        "jane@example.com",
		ExpiryDate:   now.AddDate(0, 0, 20),
	}, "secret123")
	createTestMember(t, db, models.Member{
		MemberNumber: "M0002",
		FirstName:    "Nimal",
		Surname:      "Silva",
		Email:        "nimal@example.com",
		ExpiryDate:   now.AddDate(0, 0, 5),
	}, "secret123")
	createTestMember(t, db, models.Member{
		MemberNumber: "M0003",
		FirstName:    "Kumari",
		Surname:      "Fernando",
		Email:        "kumari@example.com",
		ExpiryDate:   now.AddDate(1, 0, 0), // outside the window
	}, "secret123")
	createTestMember(t, db, models.Member{
		MemberNumber: "M0004",
		FirstName:    "Ruwan",
		Surname:      "Jaya",
		Email:        "ruwan@example.com",
		ExpiryDate:   now.AddDate(0, 0, -1), // already lapsed
	}, "secret123")

	members, err := service.ExpiringMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	// Soonest expiry first.
	assert.Equal(t, "M0002", members[0].MemberNumber)
	assert.Equal(t, "M0001", members[1].MemberNumber)
}
