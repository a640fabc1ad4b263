// Package storage keeps uploaded images on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrNoFile          = errors.New("no file selected")
)

var allowedExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

// Allowed reports whether filename carries an accepted image extension.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return allowedExtensions[strings.ToLower(ext)]
}

type LocalStore struct {
	dir        string
	publicPath string
	maxBytes   int64
	now        func() time.Time
}

func NewLocalStore(dir, publicPath string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:        dir,
		publicPath: strings.TrimRight(publicPath, "/"),
		maxBytes:   maxBytes,
		now:        time.Now,
	}, nil
}

func (s *LocalStore) MaxBytes() int64 { return s.maxBytes }

// Save writes r under a unique name derived from filename and returns the
// public URL of the stored file.
func (s *LocalStore) Save(filename string, r io.Reader, prefix string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrNoFile
	}
	if !Allowed(filename) {
		return "", ErrUnsupportedType
	}

	name := fmt.Sprintf("%s%d_%s_%s", prefix, s.now().Unix(), uuid.NewString()[:8], sanitize(filename))
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write file: %w", err)
	}
	return s.publicPath + "/" + name, nil
}

// Remove deletes a file previously returned by Save. URLs outside the
// store's public path are ignored.
func (s *LocalStore) Remove(publicURL string) error {
	if !strings.HasPrefix(publicURL, s.publicPath+"/") {
		return nil
	}
	name := path.Base(publicURL)
	if name == "." || name == "/" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// sanitize keeps the base name with ASCII letters, digits, dot, dash and
// underscore; whitespace becomes an underscore.
func sanitize(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimLeft(keepSafe(strings.TrimSuffix(base, ext)), "._")
	if stem == "" {
		stem = "image"
	}
	return stem + keepSafe(ext)
}

func keepSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		}
	}
	return b.String()
}
