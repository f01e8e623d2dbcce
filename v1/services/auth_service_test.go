package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mhs-association/membership-backend/v1/models"
)

func createTestMember(t *testing.T, db *gorm.DB, m models.Member, password string) models.Member {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	m.PasswordHash = string(hash)
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	if m.MembershipType == "" {
		m.MembershipType = models.MembershipTypeSolo
	}
	if m.ExpiryDate.IsZero() {
		m.ExpiryDate = time.Now().AddDate(1, 0, 0)
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func TestIsLocalPhoneNumber(t *testing.T) {
	assert.True(t, IsLocalPhoneNumber("0712345678"))
	assert.False(t, IsLocalPhoneNumber("712345678"))   // no leading zero
	assert.False(t, IsLocalPhoneNumber("07123456789")) // too long
	assert.False(t, IsLocalPhoneNumber("071234567a"))
	assert.False(t, IsLocalPhoneNumber("jane@example.com"))
	assert.False(t, IsLocalPhoneNumber(""))
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid credentials issue a session", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0001",
			FirstName:    "Jane",
			Surname:      "Perera",
			Email:        "jane@example.com",
			Phone:        "0712345678",
		}, "secret123")

		resp, err := service.Login(ctx, &models.LoginRequest{
			Email:    "jane@example.com",
			Password: "secret123",
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, models.RoleMember, resp.Role)
		assert.Equal(t, "M0001", resp.Member.MemberNumber)

		var session models.Session
		require.NoError(t, db.Where("token = ?", resp.Token).First(&session).Error)
		assert.Equal(t, "jane@example.com", session.Email)
		assert.True(t, session.ExpiresAt.After(time.Now()))
	})

	t.Run("Phone number works as identifier", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0002",
			FirstName:    "Nimal",
			Surname:      "Silva",
			Email:        "nimal@example.com",
			Phone:        "0771234567",
		}, "secret123")

		resp, err := service.Login(ctx, &models.LoginRequest{
			Email:    "0771234567",
			Password: "secret123",
		})
		require.NoError(t, err)
		assert.Equal(t, "nimal@example.com", resp.Member.Email)
	})

	t.Run("New login replaces the previous session", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0003",
			FirstName:    "Kumari",
			Surname:      "Fernando",
			Email:        "kumari@example.com",
		}, "secret123")

		first, err := service.Login(ctx, &models.LoginRequest{Email: "kumari@example.com", Password: "secret123"})
		require.NoError(t, err)
		second, err := service.Login(ctx, &models.LoginRequest{Email: "kumari@example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)

		var count int64
		require.NoError(t, db.Model(&models.Session{}).Where("email = ?", "kumari@example.com").Count(&count).Error)
		assert.Equal(t, int64(1), count)

		user, err := service.Validate(ctx, first.Token)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("Wrong password", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0004",
			Email:        "jane@example.com",
			FirstName:    "Jane",
			Surname:      "Perera",
		}, "secret123")

		_, err := service.Login(ctx, &models.LoginRequest{Email: "jane@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("Unknown identifier", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)

		_, err := service.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("Inactive account is rejected even with valid password", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0005",
			Email:        "lapsed@example.com",
			FirstName:    "Lapsed",
			Surname:      "Member",
			Status:       "inactive",
		}, "secret123")

		_, err := service.Login(ctx, &models.LoginRequest{Email: "lapsed@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, models.ErrAccountInactive)
	})

	t.Run("Family membership snapshot carries dependents", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		member := createTestMember(t, db, models.Member{
			MemberNumber:   "M0006",
			FirstName:      "Ruwan",
			Surname:        "Jaya",
			Email:          "ruwan@example.com",
			MembershipType: "Family",
		}, "secret123")
		require.NoError(t, db.Create(&models.FamilyMember{
			PrimaryMemberID: member.ID,
			MemberNumber:    "M0006-A",
			Name:            "Sahan Jaya",
			Relationship:    "Child",
		}).Error)
		require.NoError(t, db.Create(&models.FamilyMember{
			PrimaryMemberID: member.ID,
			MemberNumber:    "M0006-B",
			Name:            "Dilki Jaya",
			Relationship:    "Child",
		}).Error)

		resp, err := service.Login(ctx, &models.LoginRequest{Email: "ruwan@example.com", Password: "secret123"})
		require.NoError(t, err)
		require.Len(t, resp.Member.FamilyMembers, 2)
		assert.ElementsMatch(t, []string{"M0006-A", "M0006-B"}, []string{
			resp.Member.FamilyMembers[0].MemberNumber,
			resp.Member.FamilyMembers[1].MemberNumber,
		})
	})

	t.Run("Solo membership snapshot omits dependents", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		member := createTestMember(t, db, models.Member{
			MemberNumber:   "M0007",
			FirstName:      "Amara",
			Surname:        "De Silva",
			Email:          "amara@example.com",
			MembershipType: models.MembershipTypeSolo,
		}, "secret123")
		// A stray dependent row must not surface for a solo category.
		require.NoError(t, db.Create(&models.FamilyMember{
			PrimaryMemberID: member.ID,
			MemberNumber:    "M0007-A",
			Name:            "Stray Row",
		}).Error)

		resp, err := service.Login(ctx, &models.LoginRequest{Email: "amara@example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.Empty(t, resp.Member.FamilyMembers)
	})

	t.Run("Admin gets the admin role", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0000",
			Email:        "admin@schoolsystem.com",
			FirstName:    "System",
			Surname:      "Administrator",
			IsAdmin:      true,
		}, "Admin123!")

		resp, err := service.Login(ctx, &models.LoginRequest{Email: "admin@schoolsystem.com", Password: "Admin123!"})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, resp.Role)
	})
}

func TestAuthService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid session resolves the user", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0001",
			Email:        "jane@example.com",
			FirstName:    "Jane",
			Surname:      "Perera",
		}, "secret123")

		resp, err := service.Login(ctx, &models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
		require.NoError(t, err)

		user, err := service.Validate(ctx, resp.Token)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "jane@example.com", user.Email)
		assert.Equal(t, "M0001", user.MemberNumber)
		assert.Equal(t, models.RoleMember, user.Role)
	})

	t.Run("Unknown token is invalid without error", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)

		user, err := service.Validate(ctx, "no-such-token")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("Expired session is invalid and removed", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0001",
			Email:        "jane@example.com",
			FirstName:    "Jane",
			Surname:      "Perera",
		}, "secret123")
		require.NoError(t, db.Create(&models.Session{
			Email:     "jane@example.com",
			Token:     "expired-token",
			Role:      models.RoleMember,
			ExpiresAt: time.Now().Add(-time.Hour),
		}).Error)

		user, err := service.Validate(ctx, "expired-token")
		require.NoError(t, err)
		assert.Nil(t, user)

		var count int64
		require.NoError(t, db.Model(&models.Session{}).Where("token = ?", "expired-token").Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	db := SetupSQLiteTestDB(t)
	service := NewAuthService(db)
	createTestMember(t, db, models.Member{
		MemberNumber: "M0001",
		Email:        "jane@example.com",
		FirstName:    "Jane",
		Surname:      "Perera",
	}, "secret123")

	resp, err := service.Login(ctx, &models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, resp.Token))

	user, err := service.Validate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Nil(t, user)

	// Logging out again is a no-op.
	assert.NoError(t, service.Logout(ctx, resp.Token))
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid change replaces the password", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0001",
			Email:        "jane@example.com",
			FirstName:    "Jane",
			Surname:      "Perera",
		}, "secret123")

		err := service.ChangePassword(ctx, "jane@example.com", &models.ChangePasswordRequest{
			CurrentPassword: "secret123",
			NewPassword:     "newsecret",
		})
		require.NoError(t, err)

		_, err = service.Login(ctx, &models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)

		resp, err := service.Login(ctx, &models.LoginRequest{Email: "jane@example.com", Password: "newsecret"})
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("Wrong current password", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)
		createTestMember(t, db, models.Member{
			MemberNumber: "M0001",
			Email:        "jane@example.com",
			FirstName:    "Jane",
			Surname:      "Perera",
		}, "secret123")

		err := service.ChangePassword(ctx, "jane@example.com", &models.ChangePasswordRequest{
			CurrentPassword: "wrong",
			NewPassword:     "newsecret",
		})
		assert.ErrorIs(t, err, models.ErrWrongCurrentPassword)
	})

	t.Run("Too short new password", func(t *testing.T) {
		db := SetupSQLiteTestDB(t)
		service := NewAuthService(db)

		err := service.ChangePassword(ctx, "jane@example.com", &models.ChangePasswordRequest{
			CurrentPassword: "secret123",
			NewPassword:     "abc",
		})
		assert.ErrorIs(t, err, models.ErrPasswordTooShort)
	})
}

func TestGenerateToken(t *testing.T) {
	first, err := GenerateToken()
	require.NoError(t, err)
	second, err := GenerateToken()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.GreaterOrEqual(t, len(first), 40)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
}
