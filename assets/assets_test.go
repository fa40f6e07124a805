package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"eventweb/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu         sync.Mutex
	failDelete map[string]bool
	failUpload bool
	deleted    []string
}

func (f *fakeStore) Upload(_ context.Context, data []byte, folder string) (string, error) {
	if f.failUpload {
		return "", errors.New("store unavailable")
	}
	return "https://cdn.test/" + folder + "/" + string(data), nil
}

func (f *fakeStore) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[url] {
		return errors.New("store refused")
	}
	f.deleted = append(f.deleted, url)
	return nil
}

const placeholder = "https://res.cloudinary.com/dzsgn2ubp/image/upload/v1765359366/placeholder_vpwjqg.avif"

func TestDeleteMany_Outcomes(t *testing.T) {
	store := &fakeStore{failDelete: map[string]bool{"https://cdn.test/b": true}}
	m := NewManager(store, []string{placeholder}, zap.NewNop())

	out := m.DeleteMany(context.Background(), []string{
		"https://cdn.test/a", "https://cdn.test/b", placeholder, "https://cdn.test/c", "https://cdn.test/a",
	})

	require.Len(t, out, 4)
	assert.Equal(t, Outcome{URL: "https://cdn.test/a", Status: StatusDeleted}, out[0])
	assert.Equal(t, StatusFailed, out[1].Status)
	assert.Equal(t, "store refused", out[1].Reason)
	assert.Equal(t, Outcome{URL: placeholder, Status: StatusProtected}, out[2])
	assert.Equal(t, StatusDeleted, out[3].Status)

	assert.ElementsMatch(t, []string{"https://cdn.test/a", "https://cdn.test/c"}, store.deleted)
}

func TestDeleteMany_Empty(t *testing.T) {
	m := NewManager(&fakeStore{}, nil, zap.NewNop())
	assert.Empty(t, m.DeleteMany(context.Background(), nil))
}

func TestUpload_WrapsFailure(t *testing.T) {
	m := NewManager(&fakeStore{failUpload: true}, nil, zap.NewNop())
	_, err := m.Upload(context.Background(), []byte("x"), SectionImagesFolder)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUploadFailure, apperr.KindOf(err))

	_, err = NewManager(&fakeStore{}, nil, zap.NewNop()).Upload(context.Background(), nil, SectionImagesFolder)
	assert.Equal(t, apperr.KindUploadFailure, apperr.KindOf(err))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDiskStore_UploadAndDelete(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	d := NewDiskStore(root, "http://localhost:4000/", 1<<20)
	ctx := context.Background()

	url, err := d.Upload(ctx, pngBytes(t, 4, 3), SectionImagesFolder)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:4000"+d.URLPrefix()+"/"+SectionImagesFolder+"/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	local, err := d.localPath(url)
	require.NoError(t, err)
	_, err = os.Stat(local)
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, url))
	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, d.Delete(ctx, url))
}

func TestDiskStore_ShrinksLargeImages(t *testing.T) {
	d := NewDiskStore(t.TempDir(), "http://localhost:4000", 0)
	url, err := d.Upload(context.Background(), pngBytes(t, MaxImageSide+100, 10), "big")
	require.NoError(t, err)

	local, err := d.localPath(url)
	require.NoError(t, err)
	f, err := os.Open(local)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, MaxImageSide, cfg.Width)
}

func TestDiskStore_Rejects(t *testing.T) {
	d := NewDiskStore(t.TempDir(), "http://localhost:4000", 64)
	ctx := context.Background()

	_, err := d.Upload(ctx, []byte("plain text is not allowed"), "x")
	assert.ErrorIs(t, err, ErrInvalidMIME)

	_, err = d.Upload(ctx, bytes.Repeat([]byte{0}, 65), "x")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = d.Upload(ctx, pngBytes(t, 1, 1), "../escape")
	assert.ErrorIs(t, err, ErrInvalidFolder)

	assert.ErrorIs(t, d.Delete(ctx, "https://elsewhere.test/a.png"), ErrForeignURL)
	assert.ErrorIs(t, d.Delete(ctx, "http://localhost:4000"+d.URLPrefix()+"/../../etc/passwd"), ErrForeignURL)
}
