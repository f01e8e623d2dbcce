package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhs-association/membership-backend/v1/models"
)

func TestPhotoService_Store(t *testing.T) {
	t.Run("Stores under a fresh name with the original extension", func(t *testing.T) {
		dir := t.TempDir()
		service := NewPhotoService(dir, 1024)

		filename, err := service.Store("me.JPG", strings.NewReader("fake image bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".jpg"))
		assert.NotContains(t, filename, "me")

		data, err := os.ReadFile(filepath.Join(dir, filename))
		require.NoError(t, err)
		assert.Equal(t, "fake image bytes", string(data))
	})

	t.Run("Rejects disallowed extensions", func(t *testing.T) {
		service := NewPhotoService(t.TempDir(), 1024)

		_, err := service.Store("payload.exe", strings.NewReader("nope"))
		assert.ErrorIs(t, err, models.ErrInvalidFileType)

		_, err = service.Store("noextension", strings.NewReader("nope"))
		assert.ErrorIs(t, err, models.ErrInvalidFileType)
	})

	t.Run("Rejects oversized uploads and leaves no file behind", func(t *testing.T) {
		dir := t.TempDir()
		service := NewPhotoService(dir, 8)

		_, err := service.Store("big.png", strings.NewReader("0123456789abcdef"))
		assert.ErrorIs(t, err, models.ErrFileTooLarge)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestPhotoService_Path(t *testing.T) {
	dir := t.TempDir()
	service := NewPhotoService(dir, 1024)
	filename, err := service.Store("me.png", strings.NewReader("img"))
	require.NoError(t, err)

	t.Run("Resolves stored files", func(t *testing.T) {
		path, err := service.Path(filename)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, filename), path)
	})

	t.Run("Rejects traversal", func(t *testing.T) {
		_, err := service.Path("../secrets.txt")
		assert.Error(t, err)
		_, err = service.Path("a/b.png")
		assert.Error(t, err)
		_, err = service.Path("")
		assert.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := service.Path("does-not-exist.png")
		assert.Error(t, err)
	})
}

func TestConvertGoogleDriveLink(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{
			name: "File share link",
			in:   "https://drive.google.com/file/d/1AbC_dEf-123/view?usp=sharing",
			out:  "https://drive.google.com/thumbnail?id=1AbC_dEf-123&sz=w400",
		},
		{
			name: "Open link",
			in:   "https://drive.google.com/open?id=1AbC_dEf-123",
			out:  "https://drive.google.com/thumbnail?id=1AbC_dEf-123&sz=w400",
		},
		{
			name: "Other URLs pass through",
			in:   "https://example.com/photo.jpg",
			out:  "https://example.com/photo.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, ConvertGoogleDriveLink(tt.in))
		})
	}
}

func TestNormalizePhotoURL(t *testing.T) {
	t.Run("Empty gets a generated avatar", func(t *testing.T) {
		url := NormalizePhotoURL("", "Jane Perera")
		assert.Contains(t, url, "ui-avatars.com")
		assert.Contains(t, url, "Jane+Perera")
		assert.Contains(t, url, "background=1a472a")
	})

	t.Run("Drive links are converted", func(t *testing.T) {
		url := NormalizePhotoURL("https://drive.google.com/open?id=xyz123", "Jane Perera")
		assert.Equal(t, "https://drive.google.com/thumbnail?id=xyz123&sz=w400", url)
	})
}
