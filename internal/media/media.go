// Package media stores profile pictures and resolves their download URLs. It
// is independent of conversation data.
package media

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	// ErrFailedToUpload is returned when a picture could not be stored.
	ErrFailedToUpload = errors.New("failed to upload")

	// ErrFailedToGetDownloadURL is returned when no URL can be produced for a
	// stored path.
	ErrFailedToGetDownloadURL = errors.New("failed to get download url")

	// ErrInvalidPicture is returned when the upload is not a decodable image
	// within MaxPictureBytes. It wraps ErrFailedToUpload.
	ErrInvalidPicture = errors.WithMessage(ErrFailedToUpload, "invalid picture")

	// errObjectNotFound is returned by backends for absent objects.
	errObjectNotFound = errors.New("object not found")
)

// ImagesDir is the folder profile pictures are stored under.
const ImagesDir = "images/"

// Backend is an object store addressed by slash-separated paths.
type Backend interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// URL returns a download URL for path, or errObjectNotFound.
	URL(ctx context.Context, path string) (string, error)
}

// Store uploads profile pictures through a Backend.
type Store struct {
	backend Backend
}

// New returns a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// UploadProfilePicture normalizes data to a PNG, stores it at
// images/<fileName> and returns its download URL.
func (s *Store) UploadProfilePicture(ctx context.Context, data []byte, fileName string) (string, error) {
	if fileName == "" {
		return "", errors.Wrap(ErrFailedToUpload, "empty file name")
	}
	png, err := normalizePicture(data)
	if err != nil {
		glog.Warningf("media: rejecting %s: %v", fileName, err)
		return "", errors.Wrapf(ErrInvalidPicture, "%s: %v", fileName, err)
	}

	path := ImagesDir + fileName
	if err := s.backend.Put(ctx, path, png, "image/png"); err != nil {
		glog.Errorf("media: failed to upload %s: %v", path, err)
		return "", errors.Wrapf(ErrFailedToUpload, "%s: %v", path, err)
	}

	url, err := s.backend.URL(ctx, path)
	if err != nil {
		glog.Errorf("media: failed to get download url for %s: %v", path, err)
		return "", errors.Wrapf(ErrFailedToGetDownloadURL, "%s: %v", path, err)
	}
	glog.V(1).Infof("media: uploaded %s (%d bytes)", path, len(png))
	return url, nil
}

// DownloadURL resolves a stored path such as images/<file> to a URL.
func (s *Store) DownloadURL(ctx context.Context, path string) (string, error) {
	url, err := s.backend.URL(ctx, path)
	if err != nil {
		return "", errors.Wrapf(ErrFailedToGetDownloadURL, "%s: %v", path, err)
	}
	return url, nil
}
