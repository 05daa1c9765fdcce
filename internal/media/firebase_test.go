package media

import (
	"context"
	"errors"
	"os"
	"testing"

	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

func TestFirebaseStorageIntegration(t *testing.T) {
	bucket := os.Getenv("FIREBASE_STORAGE_BUCKET")
	creds := os.Getenv("FIREBASE_CREDENTIALS_FILE")
	if bucket == "" || creds == "" {
		t.Skip("FIREBASE_STORAGE_BUCKET or FIREBASE_CREDENTIALS_FILE not set; skipping integration test")
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, option.WithCredentialsFile(creds))
	if err != nil {
		t.Fatalf("firebase.NewApp failed: %v", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		t.Fatalf("app.Storage failed: %v", err)
	}
	backend, err := NewFirebaseStorage(client, "")
	if err != nil {
		t.Fatalf("NewFirebaseStorage failed: %v", err)
	}

	s := New(backend)
	url, err := s.UploadProfilePicture(ctx, testJPEG(t, 32, 32), "integration-test_profile_picture.png")
	if err != nil {
		t.Fatalf("UploadProfilePicture failed: %v", err)
	}
	if url == "" {
		t.Fatalf("expected a download url")
	}
	if _, err := s.DownloadURL(ctx, "images/does-not-exist.png"); !errors.Is(err, ErrFailedToGetDownloadURL) {
		t.Fatalf("expected ErrFailedToGetDownloadURL, got %v", err)
	}
}
