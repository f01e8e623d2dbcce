package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mhs-association/membership-backend/v1/models"
)

// MemberService handles member accounts, profiles and roster imports.
type MemberService struct {
	db *gorm.DB
}

// NewMemberService creates a new member service
func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

// GetByEmail returns a member with dependents preloaded.
func (s *MemberService) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	err := s.db.WithContext(ctx).Preload("FamilyMembers").Where("email = ?", email).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	return &member, nil
}

// GetProfile returns the member, its dependents, and the most recent
// attendance covering the member and every dependent.
func (s *MemberService) GetProfile(ctx context.Context, email string) (*models.ProfileResponse, error) {
	member, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(member.FamilyMembers)+1)
	numbers = append(numbers, member.MemberNumber)
	for _, fm := range member.FamilyMembers {
		numbers = append(numbers, fm.MemberNumber)
	}

	var attendance []models.AttendanceRecord
	err = s.db.WithContext(ctx).
		Where("member_number IN ?", numbers).
		Order("timestamp DESC").
		Limit(50).
		Find(&attendance).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance history: %w", err)
	}

	return &models.ProfileResponse{
		Member:        member,
		FamilyMembers: member.FamilyMembers,
		Attendance:    attendance,
	}, nil
}

// GetAllMembers returns every member with dependents and per-member counts
// for the admin listing, newest account first.
func (s *MemberService) GetAllMembers(ctx context.Context) ([]models.AdminMemberRow, error) {
	var members []models.Member
	if err := s.db.WithContext(ctx).Preload("FamilyMembers").
		Order("created_at DESC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	rows := make([]models.AdminMemberRow, 0, len(members))
	for _, m := range members {
		var familyCount, attendanceCount int64
		if err := s.db.WithContext(ctx).Model(&models.FamilyMember{}).
			Where("primary_member_id = ?", m.ID).Count(&familyCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count family members: %w", err)
		}
		if err := s.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
			Where("member_number = ?", m.MemberNumber).Count(&attendanceCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count attendance: %w", err)
		}
		rows = append(rows, models.AdminMemberRow{
			Member:            m,
			FamilyMemberCount: int(familyCount),
			AttendanceCount:   int(attendanceCount),
		})
	}
	return rows, nil
}

// GetMemberInfo looks up a scan identifier without recording anything:
// members first, then dependents, reporting the owning member's standing.
func (s *MemberService) GetMemberInfo(ctx context.Context, memberNumber string) (*models.MemberInfoResponse, error) {
	member, _, err := s.resolveMemberNumber(ctx, memberNumber)
	if err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return &models.MemberInfoResponse{
				Found:        false,
				MemberNumber: memberNumber,
				Message:      "Member not found",
			}, nil
		}
		return nil, err
	}

	return &models.MemberInfoResponse{
		Found:          true,
		MemberNumber:   memberNumber,
		MemberName:     s.displayNameFor(ctx, member, memberNumber),
		IsActive:       member.IsActive(nowFunc()),
		ExpiryDate:     member.ExpiryDate,
		Status:         member.Status,
		MembershipType: member.MembershipType,
	}, nil
}

// resolveMemberNumber finds the owning member for a scanned identifier. The
// second return is the scanned person's display name (the dependent's own
// name when a dependent was scanned).
func (s *MemberService) resolveMemberNumber(ctx context.Context, memberNumber string) (*models.Member, string, error) {
	var member models.Member
	err := s.db.WithContext(ctx).Where("member_number = ?", memberNumber).First(&member).Error
	if err == nil {
		return &member, member.FullName(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to look up member: %w", err)
	}

	var dependent models.FamilyMember
	err = s.db.WithContext(ctx).Where("member_number = ?", memberNumber).First(&dependent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", models.ErrMemberNotFound
		}
		return nil, "", fmt.Errorf("failed to look up family member: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&member, dependent.PrimaryMemberID).Error; err != nil {
		return nil, "", fmt.Errorf("failed to look up owning member: %w", err)
	}
	return &member, dependent.Name, nil
}

func (s *MemberService) displayNameFor(ctx context.Context, member *models.Member, memberNumber string) string {
	if member.MemberNumber == memberNumber {
		return member.FullName()
	}
	var dependent models.FamilyMember
	if err := s.db.WithContext(ctx).Where("member_number = ?", memberNumber).First(&dependent).Error; err == nil {
		return dependent.Name
	}
	return member.FullName()
}

// CreateAdmin creates a new admin account. A member number is assigned when
// the request omits one.
func (s *MemberService) CreateAdmin(ctx context.Context, req *models.CreateAdminRequest) (*models.Member, error) {
	if len(req.Password) < models.MinPasswordLength {
		return nil, models.ErrPasswordTooShort
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		return nil, models.ErrDuplicateEmail
	}

	memberNumber := strings.TrimSpace(req.MemberNumber)
	if memberNumber == "" {
		next, err := s.NextMemberNumber(ctx)
		if err != nil {
			return nil, err
		}
		memberNumber = next
	} else {
		if err := s.db.WithContext(ctx).Model(&models.Member{}).
			Where("member_number = ?", memberNumber).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check member number uniqueness: %w", err)
		}
		if count > 0 {
			return nil, models.ErrDuplicateMemberNumber
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Member{
		MemberNumber:   memberNumber,
		FirstName:      req.FirstName,
		Surname:        req.Surname,
		Email:          email,
		PasswordHash:   string(hash),
		MembershipType: models.MembershipTypeSolo,
		ExpiryDate:     time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:         models.StatusActive,
		PhotoURL:       AdminAvatarURL(req.FirstName + " " + req.Surname),
		IsAdmin:        true,
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("Admin account created", "memberNumber", admin.MemberNumber)
	return admin, nil
}

// NextMemberNumber returns max existing M-number plus one. Dependents share
// the sequence, so both tables are consulted.
func (s *MemberService) NextMemberNumber(ctx context.Context) (string, error) {
	highest := 0
	for _, model := range []interface{}{&models.Member{}, &models.FamilyMember{}} {
		var numbers []string
		err := s.db.WithContext(ctx).Model(model).
			Where("member_number LIKE ?", "M%").
			Pluck("member_number", &numbers).Error
		if err != nil {
			return "", fmt.Errorf("failed to list member numbers: %w", err)
		}
		for _, number := range numbers {
			n, err := strconv.Atoi(number[1:])
			if err != nil {
				continue // non-sequential identifiers like "M0004-A"
			}
			if n > highest {
				highest = n
			}
		}
	}
	return fmt.Sprintf("M%04d", highest+1), nil
}

// ImportMembers upserts roster rows. Each row is processed independently so
// one bad row does not abort the batch; failures are reported per row.
func (s *MemberService) ImportMembers(ctx context.Context, req *models.ImportRequest) (*models.ImportResponse, error) {
	resp := &models.ImportResponse{Success: true, Errors: []string{}}

	for i, row := range req.Members {
		if err := s.importRow(ctx, &row); err != nil {
			resp.Errors = append(resp.Errors,
				fmt.Sprintf("row %d (%s): %v", i+1, row.MemberNumber, err))
			continue
		}
		resp.Imported++
	}

	if len(resp.Errors) > 0 && resp.Imported == 0 {
		resp.Success = false
	}

	slog.Info("Roster import finished", "imported", resp.Imported, "failed", len(resp.Errors))
	return resp, nil
}

func (s *MemberService) importRow(ctx context.Context, row *models.ImportMemberRow) error {
	if row.MemberNumber == "" {
		return fmt.Errorf("member number is required")
	}
	email := strings.ToLower(strings.TrimSpace(row.Email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	expiry, err := models.ParseExpiryDate(row.ExpiryDate)
	if err != nil {
		return err
	}

	status := strings.TrimSpace(row.Status)
	if status == "" {
		status = models.StatusActive
	}
	membershipType := strings.TrimSpace(row.MembershipType)
	if membershipType == "" {
		membershipType = models.MembershipTypeSolo
	}

	fullName := row.FirstName + " " + row.Surname
	photoURL := NormalizePhotoURL(row.PhotoURL, fullName)

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var member models.Member
	err = tx.Where("member_number = ?", row.MemberNumber).First(&member).Error
	switch {
	case err == nil:
		// Existing account: refresh roster fields, keep the password.
		member.FirstName = row.FirstName
		member.Surname = row.Surname
		member.Email = email
		member.Phone = row.Phone
		member.MembershipType = membershipType
		member.ExpiryDate = expiry
		member.Status = status
		member.PhotoURL = photoURL
		member.IsAdmin = row.IsAdmin.Bool()
		if err := tx.Save(&member).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to update member: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := defaultImportPassword(row)
		if err != nil {
			tx.Rollback()
			return err
		}
		member = models.Member{
			MemberNumber:   row.MemberNumber,
			FirstName:      row.FirstName,
			Surname:        row.Surname,
			Email:          email,
			Phone:          row.Phone,
			PasswordHash:   hash,
			MembershipType: membershipType,
			ExpiryDate:     expiry,
			Status:         status,
			PhotoURL:       photoURL,
			IsAdmin:        row.IsAdmin.Bool(),
		}
		if err := tx.Create(&member).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create member: %w", err)
		}
	default:
		tx.Rollback()
		return fmt.Errorf("failed to look up member: %w", err)
	}

	for _, fam := range row.FamilyMembers {
		if fam.MemberNumber == "" || fam.Name == "" {
			tx.Rollback()
			return fmt.Errorf("family member rows need a member number and a name")
		}
		dependent := models.FamilyMember{
			PrimaryMemberID: member.ID,
			MemberNumber:    fam.MemberNumber,
			Name:            fam.Name,
			Relationship:    fam.Relationship,
			PhotoURL:        NormalizePhotoURL(fam.PhotoURL, fam.Name),
		}
		var existing models.FamilyMember
		err := tx.Where("member_number = ?", fam.MemberNumber).First(&existing).Error
		switch {
		case err == nil:
			dependent.ID = existing.ID
			dependent.CreatedAt = existing.CreatedAt
			if err := tx.Save(&dependent).Error; err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to update family member: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&dependent).Error; err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to create family member: %w", err)
			}
		default:
			tx.Rollback()
			return fmt.Errorf("failed to look up family member: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// defaultImportPassword hashes the initial password for imported accounts:
// the phone number when it is a valid local number, otherwise the email.
func defaultImportPassword(row *models.ImportMemberRow) (string, error) {
	password := row.Email
	if IsLocalPhoneNumber(row.Phone) {
		password = row.Phone
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash default password: %w", err)
	}
	return string(hash), nil
}

// DeleteMember removes a member and everything attached to it: dependents,
// attendance for the member and its dependents, and live sessions. Admins
// cannot delete their own account.
func (s *MemberService) DeleteMember(ctx context.Context, memberNumber, requestedBy string) error {
	if memberNumber == requestedBy {
		return models.ErrSelfDeletionForbidden
	}

	var member models.Member
	err := s.db.WithContext(ctx).Preload("FamilyMembers").
		Where("member_number = ?", memberNumber).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrMemberNotFound
		}
		return fmt.Errorf("failed to look up member: %w", err)
	}

	numbers := make([]string, 0, len(member.FamilyMembers)+1)
	numbers = append(numbers, member.MemberNumber)
	for _, fm := range member.FamilyMembers {
		numbers = append(numbers, fm.MemberNumber)
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Where("member_number IN ?", numbers).Delete(&models.AttendanceRecord{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if err := tx.Where("primary_member_id = ?", member.ID).Delete(&models.FamilyMember{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete family members: %w", err)
	}
	if err := tx.Where("email = ?", member.Email).Delete(&models.Session{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	if err := tx.Delete(&member).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Member deleted", "memberNumber", memberNumber, "by", requestedBy)
	return nil
}

// UpdatePhotoURL points a member's profile photo at a stored filename.
func (s *MemberService) UpdatePhotoURL(ctx context.Context, email, photoURL string) error {
	result := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("email = ?", email).Update("photo_url", photoURL)
	if result.Error != nil {
		return fmt.Errorf("failed to update photo URL: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}
