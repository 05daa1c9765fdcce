package store

import (
	"context"
	"testing"
	"time"
)

type testUser struct {
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
	Conversations []map[string]any `json:"conversations,omitempty"`
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing node", func(t *testing.T) {
		if _, err := s.Get(ctx, "/nobody-example-com"); err != ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := s.Set(ctx, "/a-b-com", testUser{FirstName: "Ann", LastName: "Bee"}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		node, err := s.Get(ctx, "a-b-com")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		var u testUser
		if err := node.Decode(&u); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if u.FirstName != "Ann" || u.LastName != "Bee" {
			t.Fatalf("unexpected user: %+v", u)
		}
	})

	t.Run("child path write keeps siblings", func(t *testing.T) {
		convs := []map[string]any{{"id": "conversation_1", "name": "Cee"}}
		if err := s.Set(ctx, "/a-b-com/conversations", convs); err != nil {
			t.Fatalf("Set child failed: %v", err)
		}
		node, err := s.Get(ctx, "/a-b-com")
		if err != nil {
			t.Fatalf("Get parent failed: %v", err)
		}
		var u testUser
		if err := node.Decode(&u); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if u.FirstName != "Ann" || len(u.Conversations) != 1 || u.Conversations[0]["id"] != "conversation_1" {
			t.Fatalf("unexpected parent after child write: %+v", u)
		}

		child, err := s.Get(ctx, "/a-b-com/conversations/0/name")
		if err != nil {
			t.Fatalf("Get list element failed: %v", err)
		}
		if string(child.Raw) != `"Cee"` {
			t.Fatalf("unexpected element value %s", child.Raw)
		}
	})

	t.Run("full replace drops children", func(t *testing.T) {
		if err := s.Set(ctx, "/a-b-com", testUser{FirstName: "Ann", LastName: "Bee"}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, err := s.Get(ctx, "/a-b-com/conversations"); err != ErrNotFound {
			t.Fatalf("expected conversations to be replaced away, got %v", err)
		}
	})

	t.Run("nil removes", func(t *testing.T) {
		if err := s.Set(ctx, "/scratch", map[string]string{"k": "v"}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.Set(ctx, "/scratch/k", nil); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := s.Get(ctx, "/scratch"); err != ErrNotFound {
			t.Fatalf("expected emptied parent to be pruned, got %v", err)
		}
	})

	t.Run("root write rejected", func(t *testing.T) {
		if err := s.Set(ctx, "/", map[string]string{"k": "v"}); err != ErrInvalidPath {
			t.Fatalf("expected ErrInvalidPath, got %v", err)
		}
	})

	if v, ok := s.(Versioned); ok {
		t.Run("versioned write", func(t *testing.T) {
			_, tag, err := v.GetVersioned(ctx, "/users")
			if err != nil {
				t.Fatalf("GetVersioned failed: %v", err)
			}
			ok, err := v.SetIfVersion(ctx, "/users", tag, []map[string]string{{"name": "Ann Bee", "email": "a-b-com"}})
			if err != nil || !ok {
				t.Fatalf("first conditional write: ok=%v err=%v", ok, err)
			}
			// the stale tag must now be rejected
			ok, err = v.SetIfVersion(ctx, "/users", tag, []map[string]string{})
			if err != nil {
				t.Fatalf("second conditional write failed: %v", err)
			}
			if ok {
				t.Fatalf("conditional write with stale tag succeeded")
			}
			node, err := s.Get(ctx, "/users")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			var users []map[string]string
			if err := node.Decode(&users); err != nil || len(users) != 1 {
				t.Fatalf("unexpected users after conditional writes: %v %v", users, err)
			}
		})
	}

	t.Run("observe", func(t *testing.T) {
		octx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		sub, err := s.Observe(octx, "/conversation_obs/messages")
		if err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
		defer sub.Close()

		first := receive(t, sub)
		if first.Exists() {
			t.Fatalf("expected absent initial node, got %s", first.Raw)
		}

		if err := s.Set(ctx, "/conversation_obs", map[string]any{"messages": []string{"hi"}}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		second := receive(t, sub)
		var msgs []string
		if err := second.Decode(&msgs); err != nil || len(msgs) != 1 || msgs[0] != "hi" {
			t.Fatalf("unexpected update: %s (%v)", second.Raw, err)
		}

		sub.Close()
		select {
		case _, ok := <-sub.C:
			if ok {
				t.Fatalf("expected channel to be closed after Close")
			}
		case <-time.After(time.Second):
			t.Fatalf("channel not closed after Close")
		}
	})
}

func receive(t *testing.T, sub *Subscription) Node {
	t.Helper()
	select {
	case n, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return n
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for subscription update")
	}
	return Node{}
}
