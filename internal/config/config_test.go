package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("MESSENGER_JWT_SECRET", "test-secret")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if c.Port != "50051" || c.StoreBackend != "memory" || c.MediaBackend != "memory" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.PollInterval != 500*time.Millisecond || c.TokenTTL != 24*time.Hour || c.RateLimitRPM != 10 {
		t.Fatalf("unexpected durations: %+v", c)
	}
	if c.WriteMode != "optimistic" {
		t.Fatalf("unexpected write mode %q", c.WriteMode)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MESSENGER_JWT_KEYS", "k1:one, k2:two")
	t.Setenv("MESSENGER_JWT_ACTIVE_KID", "k2")
	t.Setenv("MESSENGER_STORE_BACKEND", "sqlite")
	t.Setenv("MESSENGER_SQLITE_DIR", "/tmp/messenger")
	t.Setenv("MESSENGER_POLL_INTERVAL", "2s")
	t.Setenv("MESSENGER_WRITE_MODE", "last-writer-wins")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if c.StoreBackend != "sqlite" || c.SQLiteDir != "/tmp/messenger" || c.PollInterval != 2*time.Second {
		t.Fatalf("unexpected config: %+v", c)
	}
	keys, err := c.SigningKeys()
	if err != nil {
		t.Fatalf("SigningKeys failed: %v", err)
	}
	if len(keys) != 2 || keys["k1"] != "one" || keys["k2"] != "two" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{StoreBackend: "memory", MediaBackend: "memory", JWTSecret: "s"}
	}
	for name, mutate := range map[string]func(*Config){
		"no secret":         func(c *Config) { c.JWTSecret = "" },
		"mongo without uri": func(c *Config) { c.StoreBackend = "mongo" },
		"firebase no url":   func(c *Config) { c.StoreBackend = "firebase" },
		"unknown store":     func(c *Config) { c.StoreBackend = "redis" },
		"s3 without bucket": func(c *Config) { c.MediaBackend = "s3" },
		"unknown media":     func(c *Config) { c.MediaBackend = "ftp" },
		"bad key entry":     func(c *Config) { c.JWTKeys = "nocolon" },
		"inactive kid":      func(c *Config) { c.JWTKeys = "k1:one"; c.JWTActiveKid = "k2" },
		"tls required":      func(c *Config) { c.RequireTLS = true },
	} {
		c := base()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	c := base()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
