// Package blob stores exported timetable documents on the local filesystem or in an S3 bucket.
package blob

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

var (
	ErrNotFound   = errors.WithMessage(core.ErrNotFound, "blob")
	ErrInvalidKey = errors.New("invalid blob key")
)

type (
	Info struct {
		Key          string
		Size         int64
		ContentType  string
		LastModified time.Time
	}

	// Store is any blob backend. Put overwrites an existing key.
	Store interface {
		Driver() string
		Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
		Get(ctx context.Context, key string) (io.ReadCloser, Info, error)
	}
)

// NewStore opens the backend selected by conf.Driver.
func NewStore(ctx context.Context, conf core.BlobConfig) (Store, error) {
	switch conf.Driver {
	case "", DriverFS:
		return NewFSStore(conf.Root)
	case DriverS3:
		return NewS3Store(ctx, conf)
	}
	return nil, errors.Errorf("unknown blob driver %q", conf.Driver)
}

// CleanKey rejects empty, absolute and escaping keys and normalizes the rest.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
