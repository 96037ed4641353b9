package models

import "io"

// MediaType is the storage folder of an uploaded image
type MediaType string

// MediaType constants
const (
	MediaTypePost   MediaType = "posts"
	MediaTypeAvatar MediaType = "avatars"
)

// IsValid reports whether t is a known media type
func (t MediaType) IsValid() bool {
	return t == MediaTypePost || t == MediaTypeAvatar
}

// MaxImageSize is the largest accepted upload in bytes
const MaxImageSize = 5 * 1024 * 1024

// Upload is an image received from a multipart form
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}
