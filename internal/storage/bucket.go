package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes caps a single upload.
const DefaultMaxUploadBytes = 5 << 20

// Bucket is a Client backed by a directory on the local filesystem.
// Object paths are slash-separated and relative to the bucket root.
type Bucket struct {
	name     string
	root     string
	maxBytes int64
}

// NewBucket creates the bucket directory <dir>/<name> if needed.
func NewBucket(dir, name string, maxBytes int64) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	root, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("resolve bucket dir: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create bucket dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Bucket{name: name, root: root, maxBytes: maxBytes}, nil
}

func (b *Bucket) Name() string {
	return b.name
}

// CleanPath normalizes an object path and rejects anything that could
// escape the bucket.
func CleanPath(p string) (string, error) {
	p = strings.TrimPrefix(strings.ReplaceAll(p, `\`, "/"), "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func (b *Bucket) localPath(p string) (string, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	full := filepath.Join(b.root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(full, b.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

// List returns the files directly under the directory part of prefix whose
// names start with the remainder of prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	prefix = strings.TrimPrefix(prefix, "/")
	dir, namePrefix := path.Split(prefix)

	localDir := b.root
	if dir != "" {
		var err error
		localDir, err = b.localPath(dir)
		if err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(localDir)
	if os.IsNotExist(err) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !strings.HasPrefix(entry.Name(), namePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:       entry.Name(),
			Path:       dir + entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Download opens an object for reading.
func (b *Bucket) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := b.localPath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

// Upload stores an image. Content larger than the bucket limit or not
// detected as image/* is rejected before anything is written.
func (b *Bucket) Upload(ctx context.Context, p string, content io.Reader) (*FileInfo, error) {
	full, err := b.localPath(p)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, b.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > b.maxBytes {
		return nil, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotAnImage, mtype.String())
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload_")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return nil, err
	}

	cleaned, _ := CleanPath(p)
	return &FileInfo{
		Name:        path.Base(cleaned),
		Path:        cleaned,
		Size:        int64(len(data)),
		ContentType: mtype.String(),
		ModifiedAt:  time.Now(),
	}, nil
}

// Delete removes an object.
func (b *Bucket) Delete(ctx context.Context, p string) error {
	full, err := b.localPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}

// Exists checks if an object exists.
func (b *Bucket) Exists(ctx context.Context, p string) (bool, error) {
	full, err := b.localPath(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// LocalPath returns the filesystem path of an object, for serving it.
func (b *Bucket) LocalPath(p string) (string, error) {
	return b.localPath(p)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName builds the stored path for an upload:
// <prefix><unix millis>_<sanitized file name>.
func ObjectName(prefix, filename string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "cover"
	}
	return fmt.Sprintf("%s%d_%s", prefix, now.UnixMilli(), base)
}
