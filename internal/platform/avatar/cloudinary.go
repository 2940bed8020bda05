// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	// Folder groups every avatar under one Cloudinary prefix.
	Folder = "Addressbook"

	// Transformation crops uploads to a 250x250 square.
	Transformation = "c_fill,h_250,w_250"
)

// ErrUploadDisabled is returned when no Cloudinary credentials are configured.
var ErrUploadDisabled = errors.New("avatar: upload disabled")

// Uploader stores an image and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, username string, file io.Reader) (string, error)
}

// assetUploader is the slice of the Cloudinary SDK used here.
type assetUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryUploader uploads avatars to Cloudinary, one asset per username.
type CloudinaryUploader struct {
	assets assetUploader
}

// NewCloudinaryUploader authenticates against Cloudinary with explicit credentials.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("avatar: cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryUploader{assets: &cld.Upload}, nil
}

// PublicID is the Cloudinary asset id for a user's avatar.
func PublicID(username string) string {
	return fmt.Sprintf("%s/%s", Folder, username)
}

/*
Upload replaces the user's avatar asset and returns its HTTPS URL.

Parameters:
  - ctx: context.Context
  - username: string (determines the public id, so re-uploads overwrite)
  - file: io.Reader

Returns:
  - string: Secure delivery URL of the transformed asset
  - error: SDK or API failures
*/
func (u *CloudinaryUploader) Upload(ctx context.Context, username string, file io.Reader) (string, error) {
	result, err := u.assets.Upload(ctx, file, uploader.UploadParams{
		PublicID:       PublicID(username),
		Overwrite:      api.Bool(true),
		Transformation: Transformation,
	})
	if err != nil {
		return "", fmt.Errorf("avatar_upload_failed: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("avatar_upload_failed: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", errors.New("avatar_upload_failed: empty url")
	}
	return result.SecureURL, nil
}

// Disabled is the [Uploader] used when Cloudinary is not configured.
type Disabled struct{}

// Upload always fails with [ErrUploadDisabled].
func (Disabled) Upload(context.Context, string, io.Reader) (string, error) {
	return "", ErrUploadDisabled
}

var (
	_ Uploader = (*CloudinaryUploader)(nil)
	_ Uploader = Disabled{}
)
