package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func newTestBucket(t *testing.T, maxBytes int64) *Bucket {
	t.Helper()
	b, err := NewBucket(t.TempDir(), "bookcovers", maxBytes)
	require.NoError(t, err)
	return b
}

func TestBucket_UploadAndDownload(t *testing.T) {
	b := newTestBucket(t, 0)
	ctx := context.Background()

	info, err := b.Upload(ctx, "covers/1_moby.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "covers/1_moby.png", info.Path)
	assert.Equal(t, "1_moby.png", info.Name)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, int64(len(pngBytes)), info.Size)

	exists, err := b.Exists(ctx, "covers/1_moby.png")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := b.Download(ctx, "covers/1_moby.png")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestBucket_UploadRejectsNonImages(t *testing.T) {
	b := newTestBucket(t, 0)
	ctx := context.Background()

	_, err := b.Upload(ctx, "covers/notes.png", strings.NewReader("just some text, not an image"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	exists, err := b.Exists(ctx, "covers/notes.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBucket_UploadRejectsLargeFiles(t *testing.T) {
	b := newTestBucket(t, 32)

	_, err := b.Upload(context.Background(), "covers/big.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestBucket_PathTraversal(t *testing.T) {
	b := newTestBucket(t, 0)
	ctx := context.Background()

	for _, p := range []string{"../secret.png", "covers/../../etc/passwd", "", "/", `..\windows.png`} {
		_, err := b.Upload(ctx, p, bytes.NewReader(pngBytes))
		assert.ErrorIs(t, err, ErrInvalidPath, p)

		_, err = b.Download(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestBucket_List(t *testing.T) {
	b := newTestBucket(t, 0)
	ctx := context.Background()

	for _, p := range []string{"covers/2_b.png", "covers/1_a.png", "other/3_c.png", "covers/nested/4_d.png"} {
		_, err := b.Upload(ctx, p, bytes.NewReader(pngBytes))
		require.NoError(t, err)
	}

	files, err := b.List(ctx, "covers/")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "covers/1_a.png", files[0].Path)
	assert.Equal(t, "covers/2_b.png", files[1].Path)

	files, err = b.List(ctx, "covers/2_")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2_b.png", files[0].Name)

	files, err = b.List(ctx, "missing/")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBucket_Delete(t *testing.T) {
	b := newTestBucket(t, 0)
	ctx := context.Background()

	_, err := b.Upload(ctx, "covers/1_a.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, b.Delete(ctx, "covers/1_a.png"))
	assert.ErrorIs(t, b.Delete(ctx, "covers/1_a.png"), ErrObjectNotFound)

	_, err = b.Download(ctx, "covers/1_a.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "covers/1700000000123_moby-dick.jpg", ObjectName("covers/", "moby-dick.jpg", now))
	assert.Equal(t, "covers/1700000000123_My_Cover_1_.png", ObjectName("covers/", "My Cover (1).png", now))
	assert.Equal(t, "covers/1700000000123_passwd", ObjectName("covers/", "../../etc/passwd", now))
	assert.Equal(t, "1700000000123_cover", ObjectName("", "..", now))
}
