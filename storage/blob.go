// Package storage keeps report photos in a blob store and prepares uploaded
// images before they are stored.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BlobStore saves an object and returns the URL clients fetch it from.
type BlobStore interface {
	Put(ctx context.Context, objectName, contentType string, data []byte) (string, error)
}

// ImageUploader normalizes images and writes them to a BlobStore.
type ImageUploader struct {
	blobs        BlobStore
	maxDimension int
}

func NewImageUploader(blobs BlobStore, maxDimension int) *ImageUploader {
	return &ImageUploader{blobs: blobs, maxDimension: maxDimension}
}

// Upload re-encodes data as JPEG under folder and returns its public URL.
func (u *ImageUploader) Upload(ctx context.Context, folder string, data []byte) (string, error) {
	prepared, err := PrepareImage(data, u.maxDimension)
	if err != nil {
		return "", err
	}
	objectName := fmt.Sprintf("%s/%s.jpg", folder, uuid.NewString())
	return u.blobs.Put(ctx, objectName, "image/jpeg", prepared)
}
