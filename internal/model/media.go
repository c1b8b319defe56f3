package model

import "errors"

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024 // 5MB
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	ImageCacheControl  = "public, max-age=31536000" // 1 year

	MaxAudioSizeBytes = 15 * 1024 * 1024 // 15MB, a few minutes of voice
	AudioFolder       = "audio"

	MaxLogoSizeBytes = 1 * 1024 * 1024
	LogoFolder       = "logos"
	LogoRasterSize   = 256

	PresignExpirySeconds = 900
)

// Supported content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
	ContentTypeSVG  = "image/svg+xml"

	ContentTypeWebM = "audio/webm"
	ContentTypeOgg  = "audio/ogg"
	ContentTypeMPEG = "audio/mpeg"
	ContentTypeMP4  = "audio/mp4"
	ContentTypeWAV  = "audio/wav"
)

var allowedImageTypes = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

var allowedAudioTypes = map[string]string{
	ContentTypeWebM: ".webm",
	ContentTypeOgg:  ".ogg",
	ContentTypeMPEG: ".mp3",
	ContentTypeMP4:  ".m4a",
	ContentTypeWAV:  ".wav",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
	CodeInvalidAudioType = "INVALID_AUDIO_TYPE"
	CodeInvalidSVG       = "INVALID_SVG"
)

// Domain errors for media operations
var (
	ErrFileTooLarge         = errors.New("file too large")
	ErrInvalidImageType     = errors.New("invalid image type")
	ErrInvalidAudioType     = errors.New("invalid audio type")
	ErrInvalidSVG           = errors.New("invalid svg document")
	ErrStorageNotConfigured = errors.New("object storage is not configured")
)

// UploadResult represents the uploaded object location.
// URL is the public-facing URL, Key is the object key inside the bucket.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignUploadRequest requests a presigned URL for uploading a file directly to storage.
type PresignUploadRequest struct {
	ContentType string `json:"content_type" validate:"required"`
	FileSize    int64  `json:"file_size" validate:"gte=0"` // Optional but recommended for validation
}

// PresignUploadResponse returns upload details for direct uploads.
// Client PUTs bytes to UploadURL, then references PublicURL (e.g. as a comment's audio_url).
type PresignUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expires_in"`
}

// IsAllowedImageType reports if the provided content type is a supported raster image
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// IsAllowedAudioType reports if the provided content type is a supported audio format
func IsAllowedAudioType(contentType string) bool {
	_, ok := allowedAudioTypes[contentType]
	return ok
}

// ExtensionFor returns the object key extension for a supported content type.
func ExtensionFor(contentType string) string {
	if ext, ok := allowedImageTypes[contentType]; ok {
		return ext
	}
	if ext, ok := allowedAudioTypes[contentType]; ok {
		return ext
	}
	if contentType == ContentTypeSVG {
		return ".svg"
	}
	return ""
}
