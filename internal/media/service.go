// Package media stores conversation photos in S3-compatible object storage.
// The triage agent can request a photo mid-conversation; uploads land here
// and the returned object keys travel on the conversation turn as mediaRefs.
package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"dormdesk_backend/platform/apperr"
	"dormdesk_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is the expiration time for presigned download URLs.
const PresignedURLTTL = 15 * time.Minute

// allowedContentTypes is the set of photo formats accepted from students.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// PresignedURL is a time-limited link to an object in storage.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service wraps a MinIO client scoped to the conversation media bucket.
type Service struct {
	client      *minio.Client
	bucket      string
	maxFileSize int64
}

func NewService(cfg config.MediaConfig) (*Service, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Service{
		client:      client,
		bucket:      cfg.GetMinioBucketConversationMedia(),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBucketExists creates the media bucket if it doesn't exist.
func (s *Service) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// UploadPhoto stores a conversation photo and returns its object key.
// Keys are namespaced per conversation and suffixed with a short UUID so
// repeat uploads of the same filename never collide.
func (s *Service) UploadPhoto(ctx context.Context, conversationID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	if err := validateContentType(contentType); err != nil {
		return "", err
	}
	if err := s.validateFileSize(size); err != nil {
		return "", err
	}

	fileKey := buildFileKey(conversationID, fileName)
	_, err := s.client.PutObject(ctx, s.bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// DownloadURL creates a presigned URL for viewing an uploaded photo.
func (s *Service) DownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, fileKey, PresignedURLTTL, make(url.Values))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// DeletePhoto removes an object from the media bucket.
func (s *Service) DeletePhoto(ctx context.Context, fileKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete photo %s: %w", fileKey, err)
	}
	return nil
}

func validateContentType(contentType string) error {
	if !allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return apperr.Validation(fmt.Sprintf("unsupported photo type %q", contentType))
	}
	return nil
}

func (s *Service) validateFileSize(size int64) error {
	if size <= 0 {
		return apperr.Validation("photo is empty")
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return apperr.Validation(fmt.Sprintf("photo exceeds maximum size of %d bytes", s.maxFileSize))
	}
	return nil
}

func buildFileKey(conversationID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	base = sanitizeBaseName(base)
	return fmt.Sprintf("conversations/%s/%s_%s%s", conversationID, base, uuid.New().String()[:8], ext)
}

// sanitizeBaseName keeps object keys URL-safe regardless of what the phone
// camera names the file.
func sanitizeBaseName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "photo"
	}
	return b.String()
}
