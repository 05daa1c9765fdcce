package db

import (
	"context"
	"os"
	"testing"
)

// These tests are integration tests and require a running MongoDB instance.
// Set MONGODB_URI in the environment before running them.

func TestNewAndPing(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := New(ctx, uri)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	defer func() {
		_ = c.NodesCollection().Drop(context.Background())
		_ = c.Close(context.Background())
	}()

	if _, err := c.NodesCollection().InsertOne(ctx, map[string]any{"_id": "probe", "value": "null", "version": 1}); err != nil {
		t.Fatalf("insert into nodes collection failed: %v", err)
	}
	n, err := c.NodesCollection().CountDocuments(ctx, map[string]any{"_id": "probe"})
	if err != nil || n != 1 {
		t.Fatalf("expected probe document, count=%d err=%v", n, err)
	}
}

func TestNewRejectsUnreachableServer(t *testing.T) {
	if os.Getenv("MONGODB_URI") == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}
	if _, err := New(context.Background(), "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200"); err == nil {
		t.Fatalf("expected error for unreachable server")
	}
}
