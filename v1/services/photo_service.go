package services

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mhs-association/membership-backend/v1/models"
)

// allowedPhotoExtensions whitelists uploadable image types.
var allowedPhotoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Google Drive share links come in two shapes; both carry the file ID.
var (
	driveFileRe = regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`)
	driveOpenRe = regexp.MustCompile(`drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`)
)

// PhotoService stores uploaded profile photos on local disk and normalizes
// externally hosted photo links.
type PhotoService struct {
	uploadDir string
	maxBytes  int64
}

// NewPhotoService creates a new photo service
func NewPhotoService(uploadDir string, maxBytes int64) *PhotoService {
	return &PhotoService{uploadDir: uploadDir, maxBytes: maxBytes}
}

// Store writes an uploaded photo to the upload directory under a fresh
// random name and returns the stored filename. The original filename is only
// consulted for its extension.
func (s *PhotoService) Store(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedPhotoExtensions[ext] {
		return "", models.ErrInvalidFileType
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename := uuid.New().String() + ext
	path := filepath.Join(s.uploadDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write photo file: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(path)
		return "", models.ErrFileTooLarge
	}

	return filename, nil
}

// Path resolves a stored filename to its on-disk path. Names with path
// separators or traversal segments are rejected.
func (s *PhotoService) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("invalid photo filename: %q", filename)
	}
	path := filepath.Join(s.uploadDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("photo not found: %w", err)
	}
	return path, nil
}

// ConvertGoogleDriveLink rewrites a Google Drive share link to a direct
// thumbnail URL so it renders in an <img> tag. Other URLs pass through
// unchanged.
func ConvertGoogleDriveLink(link string) string {
	if m := driveFileRe.FindStringSubmatch(link); m != nil {
		return "https://drive.google.com/thumbnail?id=" + m[1] + "&sz=w400"
	}
	if m := driveOpenRe.FindStringSubmatch(link); m != nil {
		return "https://drive.google.com/thumbnail?id=" + m[1] + "&sz=w400"
	}
	return link
}

// FallbackAvatarURL builds a generated-initials avatar for members without a
// photo.
func FallbackAvatarURL(fullName string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(fullName) +
		"&background=1a472a&color=FFC107&size=200&bold=true"
}

// AdminAvatarURL is the green variant used for admin accounts.
func AdminAvatarURL(fullName string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(fullName) +
		"&background=059669&color=fff"
}

// NormalizePhotoURL applies the import-time photo rules: drive links become
// direct links, empty values become a generated avatar.
func NormalizePhotoURL(photoURL, fullName string) string {
	photoURL = strings.TrimSpace(photoURL)
	if photoURL == "" {
		return FallbackAvatarURL(fullName)
	}
	return ConvertGoogleDriveLink(photoURL)
}
