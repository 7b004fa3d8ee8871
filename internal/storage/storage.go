package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrUnsupportedType is returned for uploads whose extension is not an allowed image type
var ErrUnsupportedType = errors.New("unsupported image type")

// AllowImage lists the accepted upload extensions
var AllowImage = []string{"png", "jpg", "jpeg", "gif"}

// ImageStore keeps uploaded recipe images. Only the returned reference is
// persisted with the recipe.
type ImageStore interface {
	Save(ctx context.Context, userID uint, filename, contentType string, r io.Reader) (string, error)
	// Delete removes a previously saved image. Unknown references are ignored.
	Delete(ctx context.Context, ref string) error
}

// AllowedFile reports whether filename carries an allowed image extension
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range AllowImage {
		if ext == allowed {
			return true
		}
	}
	return false
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SecureFilename strips directories and anything outside [A-Za-z0-9._-]
func SecureFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	filename = strings.Join(strings.Fields(filename), "_")
	filename = unsafeChars.ReplaceAllString(filename, "")
	return strings.Trim(filename, "._")
}

// objectName builds the unique stored name <uid>_<unix>_<sanitized name>
func objectName(userID uint, filename string, now time.Time) (string, error) {
	if !AllowedFile(filename) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
	}
	clean := SecureFilename(filename)
	if !AllowedFile(clean) {
		clean = "image" + strings.ToLower(filepath.Ext(filename))
	}
	return fmt.Sprintf("%d_%d_%s", userID, now.Unix(), clean), nil
}
