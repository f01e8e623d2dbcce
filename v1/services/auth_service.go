package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mhs-association/membership-backend/v1/models"
)

// sessionDuration is the lifetime of an issued session token.
const sessionDuration = 7 * 24 * time.Hour

// sessionTokenBytes is the entropy of a session token before encoding.
const sessionTokenBytes = 32

// AuthService handles login, session issuance and validation, and password
// changes.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// IsLocalPhoneNumber reports whether the login identifier is a local phone
// number: exactly 10 digits with a leading zero.
func IsLocalPhoneNumber(identifier string) bool {
	if len(identifier) != 10 || identifier[0] != '0' {
		return false
	}
	for _, r := range identifier {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Login verifies credentials and issues a fresh session token. The identifier
// may be an email address or a local phone number. Any previous sessions for
// the same email are removed so at most one session is live per account.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	identifier := strings.TrimSpace(req.Email)
	var member models.Member
	query := s.db.WithContext(ctx)
	if IsLocalPhoneNumber(identifier) {
		query = query.Where("phone = ?", identifier)
	} else {
		query = query.Where("LOWER(email) = ?", strings.ToLower(identifier))
	}
	if err := query.First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	if member.Status != models.StatusActive {
		return nil, models.ErrAccountInactive
	}

	// The snapshot carries dependents only for family-category memberships.
	if member.HasFamilyMembership() {
		err := s.db.WithContext(ctx).
			Where("primary_member_id = ?", member.ID).
			Find(&member.FamilyMembers).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load family members: %w", err)
		}
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := models.Session{
		Email:     member.Email,
		Token:     token,
		Role:      member.Role(),
		ExpiresAt: time.Now().Add(sessionDuration),
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

	if err := tx.Where("email = ?", member.Email).Delete(&models.Session{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to remove previous sessions: %w", err)
	}
	if err := tx.Create(&session).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Member logged in", "memberNumber", member.MemberNumber, "role", session.Role)

	return &models.LoginResponse{
		Success: true,
		Token:   token,
		Role:    session.Role,
		Member:  &member,
	}, nil
}

// Validate resolves a session token to an authenticated user. Unknown and
// expired tokens return (nil, nil); expired rows are removed on sight.
func (s *AuthService) Validate(ctx context.Context, token string) (*models.AuthenticatedUser, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if !session.Live(time.Now()) {
		if err := s.db.WithContext(ctx).Delete(&session).Error; err != nil {
			slog.Warn("Failed to remove expired session", "error", err)
		}
		return nil, nil
	}

	var member models.Member
	if err := s.db.WithContext(ctx).Where("email = ?", session.Email).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Account deleted after the session was issued.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up session owner: %w", err)
	}

	return &models.AuthenticatedUser{
		Email:        member.Email,
		Role:         session.Role,
		MemberNumber: member.MemberNumber,
		FirstName:    member.FirstName,
		Surname:      member.Surname,
	}, nil
}

// Logout removes the session for the given token. Unknown tokens are a no-op
// so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password and replaces it. All other
// sessions for the account stay valid; the frontend keeps its token.
func (s *AuthService) ChangePassword(ctx context.Context, email string, req *models.ChangePasswordRequest) error {
	if len(req.NewPassword) < models.MinPasswordLength {
		return models.ErrPasswordTooShort
	}

	var member models.Member
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrMemberNotFound
		}
		return fmt.Errorf("failed to look up member: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return models.ErrWrongCurrentPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&member).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("Password changed", "memberNumber", member.MemberNumber)
	return nil
}

// GenerateToken returns a URL-safe random session token.
func GenerateToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
