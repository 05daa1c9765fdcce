package middleware

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type dummy struct{ email string }

func (d dummy) GetEmail() string { return d.email }

func TestLimiterStore_Allow(t *testing.T) {
	s := NewLimiterStore(5, 5, time.Hour, time.Hour)
	defer s.Stop()

	key := "email:test@example.com"
	for i := 0; i < 5; i++ {
		if !s.Allow(key) {
			t.Fatalf("expected allow at iteration %d", i)
		}
	}
	if s.Allow(key) {
		t.Fatalf("expected limiter to block after burst consumed")
	}
	if !s.Allow("email:other@example.com") {
		t.Fatalf("keys must not share a bucket")
	}
}

func TestLimiterStore_Sweep(t *testing.T) {
	s := NewLimiterStore(60, 1, time.Hour, time.Minute)
	defer s.Stop()

	s.Allow("a")
	s.Allow("b")
	s.sweep(time.Now())
	if s.Len() != 2 {
		t.Fatalf("expected fresh entries to survive, got %d", s.Len())
	}
	s.sweep(time.Now().Add(2 * time.Minute))
	if s.Len() != 0 {
		t.Fatalf("expected idle entries to be dropped, got %d", s.Len())
	}
	s.Stop()
}

func TestRateLimitUnaryInterceptor(t *testing.T) {
	s := NewLimiterStore(1, 1, time.Hour, time.Hour)
	defer s.Stop()

	const login = "/chat.v1.MessengerService/Login"
	intercept := RateLimitUnaryInterceptor(s, map[string]bool{login: true})
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	info := &grpc.UnaryServerInfo{FullMethod: login}
	if _, err := intercept(context.Background(), dummy{"User@Example.com"}, info, handler); err != nil {
		t.Fatalf("first call rejected: %v", err)
	}
	// same account, different spelling
	_, err := intercept(context.Background(), dummy{" user@example.com"}, info, handler)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}

	other := &grpc.UnaryServerInfo{FullMethod: "/chat.v1.MessengerService/SendMessage"}
	for i := 0; i < 3; i++ {
		if _, err := intercept(context.Background(), dummy{"user@example.com"}, other, handler); err != nil {
			t.Fatalf("unlimited method rejected: %v", err)
		}
	}
}
