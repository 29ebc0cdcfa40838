package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"chat-client/internal/models"
)

var (
	ErrNotImage     = errors.New("attachment is not an image")
	ErrTooLarge     = errors.New("attachment exceeds size limit")
	ErrUploadFailed = errors.New("upload failed")
)

// Pipeline holds at most one pending attachment for the composer.
type Pipeline struct {
	mu       sync.Mutex
	maxBytes int64
	pending  *models.PendingAttachment
}

// NewPipeline builds a pipeline accepting files up to maxBytes.
func NewPipeline(maxBytes int64) *Pipeline {
	return &Pipeline{maxBytes: maxBytes}
}

// Select reads the file and derives its local preview. It replaces any
// previous pending file and never touches the network.
func (p *Pipeline) Select(name string, r io.Reader) (models.PendingAttachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return models.PendingAttachment{}, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > p.maxBytes {
		return models.PendingAttachment{}, fmt.Errorf("%s: %w", name, ErrTooLarge)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return models.PendingAttachment{}, fmt.Errorf("%s (%s): %w", name, contentType, ErrNotImage)
	}

	file := models.PendingAttachment{
		FileName:       filepath.Base(name),
		ContentType:    contentType,
		Data:           data,
		PreviewDataURL: PreviewDataURL(contentType, data),
	}

	p.mu.Lock()
	p.pending = &file
	p.mu.Unlock()
	return file, nil
}

// Pending returns the pending file, if any.
func (p *Pipeline) Pending() (models.PendingAttachment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return models.PendingAttachment{}, false
	}
	return *p.pending, true
}

// Cancel discards the pending file.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

// PreviewDataURL encodes data as a base64 data URL.
func PreviewDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
