package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUploadFailed wraps any failure from the image host.
var ErrUploadFailed = errors.New("image upload failed")

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadService pushes user images to Cloudinary with an unsigned upload
// preset, so no API secret lives in this service.
type UploadService struct {
	client       *resty.Client
	cloudName    string
	uploadPreset string
}

func NewUploadService(cloudName, uploadPreset string) *UploadService {
	client := resty.New().
		SetBaseURL("https://api.cloudinary.com").
		SetTimeout(30 * time.Second)
	return &UploadService{client: client, cloudName: cloudName, uploadPreset: uploadPreset}
}

// newUploadServiceWithBaseURL exists for tests against a local server.
func newUploadServiceWithBaseURL(baseURL, cloudName, uploadPreset string) *UploadService {
	s := NewUploadService(cloudName, uploadPreset)
	s.client.SetBaseURL(baseURL)
	return s
}

// Upload stores the image and returns its public HTTPS URL.
func (s *UploadService) Upload(ctx context.Context, filename string, image []byte) (string, error) {
	var result cloudinaryResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(image)).
		SetFormData(map[string]string{"upload_preset": s.uploadPreset}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/v1_1/%s/image/upload", s.cloudName))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if resp.IsError() {
		if result.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrUploadFailed, result.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode())
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("%w: empty response", ErrUploadFailed)
	}
	return result.SecureURL, nil
}
