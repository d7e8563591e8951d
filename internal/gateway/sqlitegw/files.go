package sqlitegw

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/tobyns/CoveChat/internal/gateway"
)

// UploadFile copies the attachment into per-user storage and returns its
// public reference. Names are timestamped to avoid collisions.
func (s *Store) UploadFile(ctx context.Context, name string, r io.Reader, userID string) (*gateway.UploadResult, error) {
	ext := filepath.Ext(name)
	dir := filepath.Join(s.cfg.Database.AttachmentDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare attachment dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d%s", time.Now().UnixNano(), ext))

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, r)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &gateway.UploadResult{
		URL:      path,
		Name:     filepath.Base(name),
		MimeType: mimeType,
		Size:     size,
	}, nil
}
