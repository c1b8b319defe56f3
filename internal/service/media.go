package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"reunion_archive/internal/config"
	domain "reunion_archive/internal/model"
)

// ObjectStore is the part of MediaService other services depend on.
type ObjectStore interface {
	Put(ctx context.Context, folder, ext string, body []byte, contentType string) (*domain.UploadResult, error)
	DeleteObject(ctx context.Context, key string) error
}

// MediaService handles media uploads to Cloudflare R2 (S3 API).
type MediaService struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
	log       *zap.Logger
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
// It returns domain.ErrStorageNotConfigured when the R2 settings are incomplete.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.StorageEnabled() {
		return nil, domain.ErrStorageNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &MediaService{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
		log:       zap.L().Named("media"),
	}, nil
}

// UploadAvatar enforces size/type, normalizes to 200x200 JPEG, and uploads to R2.
func (s *MediaService) UploadAvatar(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*domain.UploadResult, error) {
	data, _, err := readAndValidateImage(file, header, domain.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, domain.AvatarWidth, domain.AvatarHeight, 85)
	if err != nil {
		return nil, err
	}

	return s.Put(ctx, domain.AvatarFolder, domain.AvatarExt, jpegBytes, domain.ContentTypeJPEG)
}

// PresignAudioUpload returns a presigned PUT URL for a voice comment.
func (s *MediaService) PresignAudioUpload(ctx context.Context, req domain.PresignUploadRequest) (*domain.PresignUploadResponse, error) {
	contentType := normalizeContentType(req.ContentType)
	if !domain.IsAllowedAudioType(contentType) {
		return nil, domain.ErrInvalidAudioType
	}
	if req.FileSize > domain.MaxAudioSizeBytes {
		return nil, domain.ErrFileTooLarge
	}
	return s.presignPut(ctx, domain.AudioFolder, contentType, req.FileSize)
}

// PresignImageUpload returns a presigned PUT URL for an image (story covers, event covers).
func (s *MediaService) PresignImageUpload(ctx context.Context, req domain.PresignUploadRequest) (*domain.PresignUploadResponse, error) {
	contentType := normalizeContentType(req.ContentType)
	if !domain.IsAllowedImageType(contentType) {
		return nil, domain.ErrInvalidImageType
	}
	if req.FileSize > domain.MaxPhotoSizeBytes {
		return nil, domain.ErrFileTooLarge
	}
	return s.presignPut(ctx, domain.PhotoFolder, contentType, req.FileSize)
}

func (s *MediaService) presignPut(ctx context.Context, folder, contentType string, size int64) (*domain.PresignUploadResponse, error) {
	key := objectKey(folder, domain.ExtensionFor(contentType))
	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(domain.ImageCacheControl),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	expires := time.Duration(domain.PresignExpirySeconds) * time.Second
	req, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &domain.PresignUploadResponse{
		UploadURL:  req.URL,
		PublicURL:  s.objectURL(key),
		Key:        key,
		ExpiresInS: domain.PresignExpirySeconds,
	}, nil
}

// Put uploads body under a fresh key in folder and returns its public location.
func (s *MediaService) Put(ctx context.Context, folder, ext string, body []byte, contentType string) (*domain.UploadResult, error) {
	key := objectKey(folder, ext)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(domain.ImageCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}
	return &domain.UploadResult{URL: s.objectURL(key), Key: key}, nil
}

// DeleteObject removes an object by key. Callers should ensure the key is not the shared default.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}

func (s *MediaService) objectURL(key string) string {
	return s.publicURL + "/" + key
}

func objectKey(folder, ext string) string {
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)
}

func normalizeContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file io.Reader, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	data, err := readLimited(file, header, maxSize)
	if err != nil {
		return nil, "", err
	}

	contentType := normalizeContentType(header.Header.Get("Content-Type"))
	if contentType == "" && len(data) > 0 {
		contentType = normalizeContentType(http.DetectContentType(data[:min(len(data), 512)]))
	}
	if !domain.IsAllowedImageType(contentType) {
		return nil, "", domain.ErrInvalidImageType
	}

	return data, contentType, nil
}

// resizeToJPEG centers/crops to target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return encodeJPEG(imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos), quality)
}

// resizeToPNG fits the image inside size x size without cropping, keeping transparency.
func resizeToPNG(data []byte, size int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, size, size, imaging.Lanczos), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
