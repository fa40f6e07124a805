package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	_ "image/gif"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// MaxImageSide caps the longer edge of stored images.
const MaxImageSide = 2560

var (
	ErrInvalidMIME   = errors.New("invalid MIME type")
	ErrFileTooLarge  = errors.New("file size exceeds limit")
	ErrForeignURL    = errors.New("url is not served by this store")
	ErrInvalidFolder = errors.New("invalid folder name")
)

// allowedMIMEs maps accepted content types to the extension they are stored under.
var allowedMIMEs = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"application/pdf": ".pdf",
}

var folderRe = regexp.MustCompile(`^[a-zA-Z0-9_\-]+(/[a-zA-Z0-9_\-]+)*$`)

// DiskStore keeps objects under a local directory served at a public base URL.
// Images are re-encoded on the way in, which drops EXIF metadata.
type DiskStore struct {
	root     string
	baseURL  string
	maxBytes int64
}

// NewDiskStore serves files written under root at baseURL + "/" + root.
func NewDiskStore(root, baseURL string, maxBytes int64) *DiskStore {
	return &DiskStore{
		root:     filepath.Clean(root),
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}
}

func (d *DiskStore) Root() string { return d.root }

// URLPrefix is the path under which stored files are served.
func (d *DiskStore) URLPrefix() string {
	return path.Clean("/" + filepath.ToSlash(d.root))
}

func (d *DiskStore) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !folderRe.MatchString(folder) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return "", ErrFileTooLarge
	}

	mimeType := http.DetectContentType(data)
	ext, ok := allowedMIMEs[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidMIME, mimeType)
	}

	if strings.HasPrefix(mimeType, "image/") {
		normalized, newExt, err := normalizeImage(data, mimeType)
		if err != nil {
			return "", err
		}
		data, ext = normalized, newExt
	}

	dir := filepath.Join(d.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	name := uuid.New().String() + ext
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", full, err)
	}
	return d.publicURL(folder, name), nil
}

func (d *DiskStore) publicURL(folder, name string) string {
	return d.baseURL + path.Join(d.URLPrefix(), folder, name)
}

func (d *DiskStore) Delete(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := d.localPath(rawURL)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("remove %s: %w", full, err)
	}
	return nil
}

// localPath maps a URL issued by Upload back to its file.
func (d *DiskStore) localPath(rawURL string) (string, error) {
	prefix := d.baseURL + d.URLPrefix() + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	rel, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	clean := path.Clean("/" + rel)
	if clean == "/" || clean != "/"+rel {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	return filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func normalizeImage(data []byte, mimeType string) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() > MaxImageSide || b.Dy() > MaxImageSide {
		img = imaging.Fit(img, MaxImageSide, MaxImageSide, imaging.Lanczos)
	}

	format, ext := imaging.JPEG, ".jpg"
	if mimeType == "image/png" || mimeType == "image/gif" {
		format, ext = imaging.PNG, ".png"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), ext, nil
}
