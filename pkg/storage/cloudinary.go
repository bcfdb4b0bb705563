package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStorage keeps payment proofs in a Cloudinary folder.
type CloudinaryStorage struct {
	upload  cloudinaryUploader
	folder  string
	timeout time.Duration
}

// NewCloudinaryStorage builds a store from account credentials.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	return newCloudinaryStorage(&cld.Upload, folder), nil
}

func newCloudinaryStorage(upload cloudinaryUploader, folder string) *CloudinaryStorage {
	if folder == "" {
		folder = "payment-proofs"
	}
	return &CloudinaryStorage{upload: upload, folder: folder, timeout: 60 * time.Second}
}

// Put uploads the proof. PDFs go up as raw assets, images as image assets.
func (s *CloudinaryStorage) Put(ctx context.Context, name, contentType string, r io.Reader) (*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resourceType := "image"
	if contentType == "application/pdf" {
		resourceType = "raw"
	}
	publicID := strings.TrimSuffix(path.Base(name), path.Ext(name))

	res, err := s.upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID,
		ResourceType: resourceType,
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return &Object{Ref: res.PublicID, URL: res.SecureURL, ContentType: contentType, SizeBytes: int64(res.Bytes)}, nil
}

// Delete removes an uploaded proof by public id.
func (s *CloudinaryStorage) Delete(ctx context.Context, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.upload.Destroy(ctx, uploader.DestroyParams{PublicID: ref}); err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}
