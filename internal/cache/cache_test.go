package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/miradorstack/churn-explainer/internal/config"
)

func TestValkeyProviderRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)

	provider, err := NewValkeyProvider(ValkeyConfig{Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("NewValkeyProvider: %v", err)
	}
	defer provider.Close()

	ctx := context.Background()
	if _, err := provider.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := provider.Set(ctx, "k", []byte("explanation"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := provider.Get(ctx, "k")
	if err != nil || string(got) != "explanation" {
		t.Fatalf("Get returned %q, %v", got, err)
	}
	if ttl := srv.TTL("k"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %s", ttl)
	}

	srv.FastForward(2 * time.Minute)
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}

	_ = provider.Set(ctx, "forever", []byte("x"), 0)
	if ttl := srv.TTL("forever"); ttl != 0 {
		t.Fatalf("expected no expiry for zero ttl, got %s", ttl)
	}
}

func TestValkeyProviderRequiresAuth(t *testing.T) {
	srv := miniredis.RunT(t)
	srv.RequireAuth("secret")

	if _, err := NewValkeyProvider(ValkeyConfig{Addr: srv.Addr(), Password: "wrong"}); err == nil {
		t.Fatalf("expected ping to fail with a wrong password")
	}
	provider, err := NewValkeyProvider(ValkeyConfig{Addr: srv.Addr(), Password: "secret"})
	if err != nil {
		t.Fatalf("expected auth to succeed: %v", err)
	}
	_ = provider.Close()
}

func TestValkeyProviderRequiresAddr(t *testing.T) {
	if _, err := NewValkeyProvider(ValkeyConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestMemoryProviderExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewMemoryProvider()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Second)
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get returned %q, %v", got, err)
	}
	got[0] = 'x'
	again, _ := c.Get(ctx, "k")
	if string(again) != "v" {
		t.Fatalf("stored value was mutated through a returned slice")
	}

	now = now.Add(2 * time.Second)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestNoopProvider(t *testing.T) {
	var p Provider = NoopProvider{}
	_ = p.Set(context.Background(), "k", []byte("v"), time.Minute)
	if _, err := p.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop provider should always miss")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	if _, ok := Open(config.CacheConfig{}, nil).(NoopProvider); !ok {
		t.Fatalf("disabled cache should be a noop provider")
	}
	if _, ok := Open(config.CacheConfig{Enabled: true, Backend: BackendMemory}, nil).(*MemoryProvider); !ok {
		t.Fatalf("memory backend should build a MemoryProvider")
	}

	srv := miniredis.RunT(t)
	p := Open(config.CacheConfig{Enabled: true, Backend: BackendValkey, Addr: srv.Addr()}, nil)
	defer p.Close()
	if _, ok := p.(*ValkeyProvider); !ok {
		t.Fatalf("valkey backend should build a ValkeyProvider, got %T", p)
	}
}

func TestOpenDegradesWhenValkeyIsDown(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	p := Open(config.CacheConfig{Enabled: true, Backend: BackendValkey, Addr: addr, DialTimeout: 100 * time.Millisecond}, nil)
	if _, ok := p.(NoopProvider); !ok {
		t.Fatalf("unreachable valkey should degrade to noop, got %T", p)
	}
}
