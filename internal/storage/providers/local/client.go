// Package local implements the content store on the local filesystem.
// Blobs land under a media directory partitioned by date, and references
// are URL paths under a configurable prefix so the HTTP layer can serve
// the directory statically.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wikiport/internal/storage"
	"wikiport/internal/utils"
)

// Client stores blobs under BaseDir and returns references prefixed with
// URLPrefix.
type Client struct {
	BaseDir   string
	URLPrefix string
}

// New creates a local content store rooted at baseDir. References are URL
// paths under urlPrefix (e.g. "/media").
func New(baseDir, urlPrefix string) *Client {
	return &Client{
		BaseDir:   baseDir,
		URLPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}
}

// Save writes content to attachments/<YYYY/MM/DD>/<uuid>-<filename> under
// the base directory and returns the URL-path reference.
func (c *Client) Save(_ context.Context, filename string, content io.Reader) (*storage.SavedFile, error) {
	filename = utils.SanitizeFilename(filename)
	now := time.Now().UTC()
	relDir := filepath.Join("attachments", now.Format("2006"), now.Format("01"), now.Format("02"))
	relPath := filepath.Join(relDir, fmt.Sprintf("%s-%s", uuid.NewString(), filename))

	absDir := filepath.Join(c.BaseDir, relDir)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory %s: %w", absDir, err)
	}

	absPath := filepath.Join(c.BaseDir, relPath)
	out, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create media file %s: %w", absPath, err)
	}
	defer out.Close()

	size, err := io.Copy(out, content)
	if err != nil {
		os.Remove(absPath)
		return nil, fmt.Errorf("failed to write media file %s: %w", absPath, err)
	}

	return &storage.SavedFile{
		Reference: c.URLPrefix + "/" + filepath.ToSlash(relPath),
		Size:      size,
	}, nil
}

// Open retrieves a stored blob by the reference returned from Save.
func (c *Client) Open(_ context.Context, reference string) (io.ReadCloser, error) {
	relPath, err := c.relativePath(reference)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(c.BaseDir, relPath))
}

// Delete removes a stored blob; unknown references are ignored.
func (c *Client) Delete(_ context.Context, reference string) error {
	relPath, err := c.relativePath(reference)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(c.BaseDir, relPath)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Client) relativePath(reference string) (string, error) {
	if !strings.HasPrefix(reference, c.URLPrefix+"/") {
		return "", fmt.Errorf("reference %q is not served by this store", reference)
	}
	rel := strings.TrimPrefix(reference, c.URLPrefix+"/")
	rel = path.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("reference %q resolves outside the media directory", reference)
	}
	return filepath.FromSlash(rel), nil
}

var _ storage.Store = (*Client)(nil)
