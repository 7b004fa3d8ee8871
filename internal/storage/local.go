package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxNameAttempts = 100

// LocalStore writes images to a directory served under URLPrefix
type LocalStore struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

// NewLocalStore creates dir if needed
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		now:       time.Now,
	}, nil
}

func (s *LocalStore) Save(_ context.Context, userID uint, filename, _ string, r io.Reader) (string, error) {
	name, err := objectName(userID, filename, s.now())
	if err != nil {
		return "", err
	}

	f, name, err := s.create(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return s.urlPrefix + "/" + name, nil
}

// create opens a new file for name, adding a numeric suffix when it is taken
func (s *LocalStore) create(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; i <= maxNameAttempts; i++ {
		f, err := os.OpenFile(filepath.Join(s.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return nil, "", fmt.Errorf("create %s: %w", name, os.ErrExist)
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, s.urlPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
