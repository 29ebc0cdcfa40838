package attachment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// PlaceholderURL is what StubUploader hands back.
const PlaceholderURL = "https://via.placeholder.com/200x200.png?text=Image"

// Uploader turns a pending file into a publicly reachable URL. One attempt,
// no retry; failures wrap ErrUploadFailed.
type Uploader interface {
	Upload(ctx context.Context, file models.PendingAttachment) (string, error)
}

// StorageUploader writes objects to a Supabase-compatible storage bucket.
type StorageUploader struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
}

// NewStorageUploader constructs the uploader. A nil httpClient gets an
// instrumented default.
func NewStorageUploader(baseURL, apiKey, bucket string, httpClient *http.Client) *StorageUploader {
	if httpClient == nil {
		httpClient = &http.Client{Transport: observability.NewInstrumentedTransport(nil)}
	}
	return &StorageUploader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		bucket:     bucket,
		httpClient: httpClient,
	}
}

// Upload stores the file under a fresh object name and returns its public URL.
func (u *StorageUploader) Upload(ctx context.Context, file models.PendingAttachment) (string, error) {
	name := ObjectName(file)
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, url.PathEscape(u.bucket), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(file.Data))
	if err != nil {
		observability.IncUpload("error")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("apikey", u.apiKey)
	req.Header.Set("Content-Type", file.ContentType)
	req.Header.Set("x-upsert", "false")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		observability.IncUpload("error")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.IncUpload("error")
		return "", fmt.Errorf("%w: storage answered %d", ErrUploadFailed, resp.StatusCode)
	}

	observability.IncUpload("ok")
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, url.PathEscape(u.bucket), url.PathEscape(name)), nil
}

// ObjectName is chat_<uuid> plus an extension matching the content type.
func ObjectName(file models.PendingAttachment) string {
	ext := strings.ToLower(filepath.Ext(file.FileName))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(file.ContentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "chat_" + uuid.NewString() + ext
}

// StubUploader stands in for object storage when none is configured.
type StubUploader struct{}

func (StubUploader) Upload(ctx context.Context, file models.PendingAttachment) (string, error) {
	if err := ctx.Err(); err != nil {
		observability.IncUpload("error")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	observability.IncUpload("stub")
	return PlaceholderURL, nil
}
