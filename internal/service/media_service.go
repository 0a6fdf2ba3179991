package service

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-issues/internal/config"
	apperrors "github.com/spec-kit/campus-issues/pkg/util"
)

// MediaStore converts locally-selected images into durable URLs referenced
// by issue records.
type MediaStore interface {
	// Store uploads base64-encoded image data (with or without a data: URI
	// prefix) under the given path hint. It returns the durable URL and the
	// public id the object was actually stored under; the store may prefix
	// the hint with a configured folder, so callers must pass the returned
	// id, not the hint, to Remove.
	Store(ctx context.Context, base64Data, pathHint string) (url, publicID string, err error)
	// Remove deletes a previously stored object. Best-effort; used to guard
	// against orphaned media when the subsequent record write fails.
	Remove(ctx context.Context, publicID string) error
}

// CloudinaryMediaStore uploads images through Cloudinary's signed HTTP API.
type CloudinaryMediaStore struct {
	cfg    config.MediaConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewCloudinaryMediaStore constructs the store.
func NewCloudinaryMediaStore(cfg config.MediaConfig, logger *zap.Logger) *CloudinaryMediaStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudinaryMediaStore{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

func (s *CloudinaryMediaStore) Store(ctx context.Context, base64Data, pathHint string) (string, string, error) {
	if !s.cfg.Configured() {
		return "", "", apperrors.NewConfigError("media upload credentials not configured")
	}
	payload := base64Data
	if idx := strings.Index(payload, ","); idx != -1 {
		payload = payload[idx+1:]
	}
	if strings.TrimSpace(payload) == "" {
		return "", "", apperrors.NewValidationError("empty image data", nil)
	}

	publicID := pathHint
	if s.cfg.Folder != "" {
		publicID = s.cfg.Folder + "/" + pathHint
	}

	form := url.Values{}
	form.Add("file", "data:image/jpeg;base64,"+payload)
	form.Add("api_key", s.cfg.APIKey)
	form.Add("public_id", publicID)

	timestamp := fmt.Sprintf("%d", s.now().Unix())
	form.Add("timestamp", timestamp)
	form.Add("signature", s.sign("public_id="+publicID+"&timestamp="+timestamp))

	endpoint := "https://api.cloudinary.com/v1_1/" + s.cfg.CloudName + "/image/upload"
	body, err := s.post(ctx, endpoint, form)
	if err != nil {
		return "", "", err
	}

	var parsed struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", apperrors.NewStorageError("media upload returned malformed response", err)
	}
	if parsed.SecureURL == "" && parsed.URL == "" {
		return "", "", apperrors.NewStorageError("media upload returned no url", nil)
	}
	if parsed.SecureURL != "" {
		return parsed.SecureURL, publicID, nil
	}
	return parsed.URL, publicID, nil
}

func (s *CloudinaryMediaStore) Remove(ctx context.Context, publicID string) error {
	if !s.cfg.Configured() {
		return apperrors.NewConfigError("media upload credentials not configured")
	}

	form := url.Values{}
	form.Add("api_key", s.cfg.APIKey)
	form.Add("public_id", publicID)
	timestamp := fmt.Sprintf("%d", s.now().Unix())
	form.Add("timestamp", timestamp)
	form.Add("signature", s.sign("public_id="+publicID+"&timestamp="+timestamp))

	endpoint := "https://api.cloudinary.com/v1_1/" + s.cfg.CloudName + "/image/destroy"
	if _, err := s.post(ctx, endpoint, form); err != nil {
		return err
	}
	return nil
}

// PublicIDFromURL recovers the upload public id from a delivery URL, used to
// remove attachments of withdrawn issues. Returns "" when the URL is not a
// recognizable upload delivery URL.
func PublicIDFromURL(rawURL string) string {
	idx := strings.Index(rawURL, "/upload/")
	if idx == -1 {
		return ""
	}
	rest := rawURL[idx+len("/upload/"):]
	// delivery URLs carry a version segment, e.g. v1712345678/
	if strings.HasPrefix(rest, "v") {
		if slash := strings.Index(rest, "/"); slash != -1 {
			if _, err := strconv.Atoi(rest[1:slash]); err == nil {
				rest = rest[slash+1:]
			}
		}
	}
	if dot := strings.LastIndex(rest, "."); dot != -1 {
		rest = rest[:dot]
	}
	return rest
}

func (s *CloudinaryMediaStore) sign(params string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(params+s.cfg.APISecret)))
}

func (s *CloudinaryMediaStore) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.NewStorageError("media request build failed", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.NewStorageError("media upload failed", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperrors.NewStorageError("media response read failed", err)
	}
	if res.StatusCode >= 400 {
		s.logger.Warn("media backend rejected request",
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", body))
		return nil, apperrors.NewStorageError("media backend rejected request", nil)
	}
	return body, nil
}
