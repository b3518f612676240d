package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

type params struct {
	Principal float64 `json:"principal"`
	APR       float64 `json:"apr"`
}

func TestKey(t *testing.T) {
	a := Key("payoff", params{1000, 18})
	b := Key("payoff", params{1000, 18})
	c := Key("payoff", params{1000, 19})

	if !strings.HasPrefix(a, "payoff:") {
		t.Errorf("Key = %q, want payoff: prefix", a)
	}
	if a != b {
		t.Error("equal params should hash to the same key")
	}
	if a == c {
		t.Error("different params should hash to different keys")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "short", []byte("a"), time.Minute)
	c.Set(ctx, "forever", []byte("b"), 0)

	if v, ok := c.Get(ctx, "short"); !ok || string(v) != "a" {
		t.Errorf("Get(short) = %q, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("expired entry should miss")
	}
	if _, ok := c.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl should not expire")
	}
}

func TestMemoryCacheBound(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	c.Set(ctx, "c", []byte("3"), 0)

	if c.Len() > 2 {
		t.Errorf("Len = %d, want <= 2", c.Len())
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(8)
	key := Key("payoff", params{500, 9.9})

	if err := SetJSON(ctx, c, key, params{500, 9.9}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got params
	if !GetJSON(ctx, c, key, &got) || got.Principal != 500 {
		t.Errorf("GetJSON = %+v", got)
	}
	if GetJSON(ctx, nil, key, &got) {
		t.Error("nil cache should miss")
	}
}
