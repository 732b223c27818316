package blob

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

// FSStore keeps blobs as plain files under root; the content type is derived from the key's extension.
type FSStore struct {
	root string
}

var _ Store = (*FSStore)(nil)

func NewFSStore(root string) (*FSStore, error) {
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(root, "root")).Check(); err != nil {
		return nil, errors.Wrap(err, "fs blob store")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating blob root")
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Driver() string { return DriverFS }

func (s *FSStore) pathFor(key string) (string, string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	key, p, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Info{}, errors.Wrap(err, "creating blob dir")
	}

	// write to a temp file first so readers never see a partial blob
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return Info{}, errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return Info{}, errors.Wrap(err, "writing blob")
	}
	if err := tmp.Close(); err != nil {
		return Info{}, errors.Wrap(err, "closing blob")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return Info{}, errors.Wrap(err, "moving blob")
	}

	info, err := s.stat(key, p)
	if err != nil {
		return Info{}, err
	}
	if contentType != "" {
		info.ContentType = contentType
	}
	return info, nil
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, Info, error) {
	key, p, err := s.pathFor(key)
	if err != nil {
		return nil, Info{}, err
	}
	info, err := s.stat(key, p)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, Info{}, errors.Wrap(err, "opening blob")
	}
	return f, info, nil
}

func (s *FSStore) stat(key, p string) (Info, error) {
	fi, err := os.Stat(p)
	if os.IsNotExist(err) {
		return Info{}, errors.WithMessage(ErrNotFound, key)
	}
	if err != nil {
		return Info{}, errors.Wrap(err, "reading blob info")
	}
	if fi.IsDir() {
		return Info{}, errors.WithMessage(ErrNotFound, key)
	}
	return Info{
		Key:          key,
		Size:         fi.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(p)),
		LastModified: fi.ModTime().UTC(),
	}, nil
}
