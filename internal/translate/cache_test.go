package translate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestKey(t *testing.T) {
	k := Key("hola", "es", "en")
	if !strings.HasPrefix(k, "translate:es:en:") || len(k) != len("translate:es:en:")+40 {
		t.Errorf("Key() = %q", k)
	}
	if Key("hola", "es", "en") == Key("hola ", "es", "en") {
		t.Error("different texts must have different keys")
	}
}

func TestCached_MemoryStore(t *testing.T) {
	stub := &stubTranslator{out: "hello"}
	c := NewCached(stub, NewMemoryStore(10), nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := c.Translate(ctx, "hola", "es", "en")
		if err != nil || got != "hello" {
			t.Fatalf("Translate() = %q, %v", got, err)
		}
	}
	if stub.calls != 1 {
		t.Errorf("translator calls = %d, want 1", stub.calls)
	}
}

func TestCached_FirstAnswerWins(t *testing.T) {
	stub := &stubTranslator{out: "hello"}
	c := NewCached(stub, NewMemoryStore(10), nil)
	ctx := context.Background()
	first, _ := c.Translate(ctx, "hola", "es", "en")
	stub.out = "hi"
	second, _ := c.Translate(ctx, "hola", "es", "en")
	if first != second {
		t.Errorf("cached translation changed: %q then %q", first, second)
	}
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	stub := &stubTranslator{err: ErrUnsupported}
	c := NewCached(stub, NewMemoryStore(10), nil)
	ctx := context.Background()
	_, _ = c.Translate(ctx, "hola", "es", "en")
	stub.err = nil
	stub.out = "hello"
	got, err := c.Translate(ctx, "hola", "es", "en")
	if err != nil || got != "hello" {
		t.Errorf("Translate() after error = %q, %v", got, err)
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr(), TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, ok, err := store.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v", ok, err)
	}

	stub := &stubTranslator{out: "a food bank"}
	c := NewCached(stub, store, nil)
	if _, err := c.Translate(ctx, "un banco de comida", "es", "en"); err != nil {
		t.Fatal(err)
	}
	key := Key("un banco de comida", "es", "en")
	got, err := mr.Get(key)
	if err != nil || got != "a food bank" {
		t.Errorf("redis value = %q, %v", got, err)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := store.Get(ctx, key); ok {
		t.Error("entry should expire after ttl")
	}
}

func TestRedisStore_FailuresFallThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	mr.Close()

	stub := &stubTranslator{out: "hello"}
	got, err := NewCached(stub, store, nil).Translate(ctx, "hola", "es", "en")
	if err != nil || got != "hello" {
		t.Errorf("Translate() with redis down = %q, %v", got, err)
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, RedisOptions{Addr: addr}); err == nil {
		t.Error("expected connection error")
	}
}
