// Package storage uploads finished clip artifacts to the blob store and
// hands back their public URLs.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists a local artifact to durable storage and returns a public URL.
type Store interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// UploadError represents a non-2xx response from the blob endpoint.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("blob upload failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and network errors.
// Client errors (4xx) are considered permanent.
func (e *UploadError) IsRetryable() bool {
	return e.StatusCode >= 500
}

const blobPrefix = "clips"

// BlobClient uploads artifacts over HTTP. Object names get a random suffix
// so concurrent runs can never overwrite each other's clips.
type BlobClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewBlobClient(baseURL, token string, logger *slog.Logger) *BlobClient {
	return &BlobClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

type blobResponse struct {
	URL string `json:"url"`
}

func (c *BlobClient) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	objectName := blobPrefix + "/" + withRandomSuffix(filepath.Base(localPath))
	url := c.baseURL + "/" + objectName

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Authorization", "Bearer "+c.token)

	if c.logger != nil {
		c.logger.Info("uploading artifact",
			"object", objectName,
			"size_bytes", info.Size(),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result blobResponse
	if err := json.Unmarshal(respBody, &result); err != nil || result.URL == "" {
		// Endpoints that do not echo a URL imply object addressing.
		return url, nil
	}
	return result.URL, nil
}

// withRandomSuffix inserts a random hex tag before the file extension.
func withRandomSuffix(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return base + "-" + hex.EncodeToString(b) + ext
}

var _ Store = (*BlobClient)(nil)
