// Package storage keeps uploaded attachment files on local disk or in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/diewo77/solodesk/internal/config"
	"github.com/google/uuid"
)

// ErrNotFound is returned when deleting a file that does not exist.
var ErrNotFound = errors.New("storage: file not found")

// ErrInvalidName rejects names that are not keys produced by NewKey.
var ErrInvalidName = errors.New("storage: invalid file name")

// Object describes a stored file.
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// Storage persists files under owner-prefixed keys.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// New picks the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.Dir, cfg.PublicURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

var (
	fileNamePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]{1,10})?$`)
	extPattern      = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

// NewKey returns "<userID>/<uuid><ext>" for an uploaded file name; the original name is
// only used for its extension.
func NewKey(userID uint, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), ext)
}

// KeyFor validates a client supplied file name and scopes it to userID.
func KeyFor(userID uint, name string) (string, error) {
	if !fileNamePattern.MatchString(name) {
		return "", ErrInvalidName
	}
	return fmt.Sprintf("%d/%s", userID, name), nil
}

// FileName is the last element of a key, as exposed to clients.
func FileName(key string) string {
	return path.Base(key)
}
