package media

import (
	"context"

	gcs "cloud.google.com/go/storage"
	"firebase.google.com/go/storage"
	"github.com/pkg/errors"
)

// FirebaseStorage stores objects in a Firebase Storage (Cloud Storage) bucket.
type FirebaseStorage struct {
	bucket *gcs.BucketHandle
}

// NewFirebaseStorage opens bucketName, or the app's default bucket when
// bucketName is empty.
func NewFirebaseStorage(client *storage.Client, bucketName string) (*FirebaseStorage, error) {
	var (
		bucket *gcs.BucketHandle
		err    error
	)
	if bucketName == "" {
		bucket, err = client.DefaultBucket()
	} else {
		bucket, err = client.Bucket(bucketName)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open storage bucket")
	}
	return &FirebaseStorage{bucket: bucket}, nil
}

// Put implements Backend.
func (f *FirebaseStorage) Put(ctx context.Context, path string, data []byte, contentType string) error {
	w := f.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(w.Close(), "close %s", path)
}

// URL implements Backend.
func (f *FirebaseStorage) URL(ctx context.Context, path string) (string, error) {
	attrs, err := f.bucket.Object(path).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return "", errObjectNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "attrs %s", path)
	}
	return attrs.MediaLink, nil
}
