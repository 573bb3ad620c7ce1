package redis

import (
	"testing"

	"github.com/sayyara-app/sayyara-backend/pkg/config"
)

func TestIdempotencyKeyNamespacing(t *testing.T) {
	c := &Client{}
	key := c.IdempotencyKey("moyasar", "pay_123")
	if key != "syr:idempotency:moyasar:pay_123" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestBuildKeySkipsEmptyParts(t *testing.T) {
	c := &Client{}
	key := c.buildKey("a", "", "b")
	if key != "syr:a:b" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when url and address missing")
	}

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pass@localhost:6380/1"})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 1 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
}
