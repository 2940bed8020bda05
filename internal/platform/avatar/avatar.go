// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package avatar resolves default profile pictures and stores uploaded ones.

Two independent capabilities live here:

  - [Gravatar] derives a deterministic avatar URL from an email address at registration.
  - [CloudinaryUploader] pushes a user-supplied image to Cloudinary and returns its public URL.

Both are optional at runtime. Registration treats a resolver failure as "no avatar",
and the upload route is disabled when Cloudinary credentials are absent.
*/
package avatar

import (
	"context"
	"crypto/md5" //nolint:gosec // Gravatar addresses images by MD5 of the email.
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// GravatarBaseURL is the public Gravatar image endpoint.
const GravatarBaseURL = "https://www.gravatar.com/avatar/"

// ErrEmptyEmail is returned when there is nothing to derive an avatar from.
var ErrEmptyEmail = errors.New("avatar: empty email")

// Gravatar builds avatar URLs locally; it never calls the network.
type Gravatar struct {
	BaseURL string
}

// NewGravatar returns a resolver pointing at the public Gravatar endpoint.
func NewGravatar() *Gravatar {
	return &Gravatar{BaseURL: GravatarBaseURL}
}

/*
Resolve returns the Gravatar URL for an email address.

Parameters:
  - ctx: context.Context (unused, kept for interface symmetry with remote resolvers)
  - email: string

Returns:
  - string: https://www.gravatar.com/avatar/<md5(lowercase(trim(email)))>
  - error: ErrEmptyEmail
*/
func (gravatar *Gravatar) Resolve(_ context.Context, email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrEmptyEmail
	}

	sum := md5.Sum([]byte(normalized)) //nolint:gosec
	base := gravatar.BaseURL
	if base == "" {
		base = GravatarBaseURL
	}
	return fmt.Sprintf("%s%s", base, hex.EncodeToString(sum[:])), nil
}
