package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/PaulBabatuyi/messenger-sync/internal/db"
)

// These tests are integration tests and require a running MongoDB instance.
// Set MONGODB_URI in the environment before running them.

func TestMongoContract(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := db.New(ctx, uri)
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	defer func() {
		_ = c.NodesCollection().Drop(context.Background())
		_ = c.Close(context.Background())
	}()

	// ensure a clean collection in case previous runs left data
	_ = c.NodesCollection().Drop(ctx)

	runStoreContract(t, NewMongo(c.NodesCollection(), 20*time.Millisecond))
}
