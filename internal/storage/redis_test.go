package storage

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kalambet/pronouns/internal/pronoun"
)

func newTestRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBackend(client, "test"), mr
}

func TestRedisSaveAndLoad(t *testing.T) {
	b, mr := newTestRedis(t)

	she, _ := pronoun.Preset("she")
	want := map[string]pronoun.Record{"alice": she, "sparse": {Reflexive: "xemself"}}
	if err := b.SavePronouns(ctx, want); err != nil {
		t.Fatalf("SavePronouns: %v", err)
	}

	if got := mr.HGet("test:persona:alice", "posDet"); got != "her" {
		t.Errorf("hash field posDet = %q, want her", got)
	}

	got, err := b.LoadPronouns(ctx)
	if err != nil {
		t.Fatalf("LoadPronouns: %v", err)
	}
	for id, r := range want {
		if got[id] != r {
			t.Errorf("persona %q = %+v, want %+v", id, got[id], r)
		}
	}
}

func TestRedisSaveRemovesForgottenPersonas(t *testing.T) {
	b, mr := newTestRedis(t)

	he, _ := pronoun.Preset("he")
	if err := b.SavePronouns(ctx, map[string]pronoun.Record{"a": he, "b": he}); err != nil {
		t.Fatalf("SavePronouns: %v", err)
	}
	if err := b.SavePronouns(ctx, map[string]pronoun.Record{"b": he}); err != nil {
		t.Fatalf("SavePronouns: %v", err)
	}

	if mr.Exists("test:persona:a") {
		t.Error("hash for forgotten persona a still exists")
	}
	got, err := b.LoadPronouns(ctx)
	if err != nil {
		t.Fatalf("LoadPronouns: %v", err)
	}
	if len(got) != 1 || got["b"] != he {
		t.Errorf("LoadPronouns = %+v, want only b", got)
	}
}

// TestRedisMissingFieldsLoadEmpty covers hashes written without every field.
func TestRedisMissingFieldsLoadEmpty(t *testing.T) {
	b, mr := newTestRedis(t)

	mr.HSet("test:persona:legacy", "subjective", "they")
	if _, err := mr.SAdd("test:personas", "legacy"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}

	got, err := b.LoadPronouns(ctx)
	if err != nil {
		t.Fatalf("LoadPronouns: %v", err)
	}
	want := pronoun.Record{Subjective: "they"}
	if got["legacy"] != want {
		t.Errorf("legacy = %+v, want %+v", got["legacy"], want)
	}
}

func TestRedisDefaultPrefix(t *testing.T) {
	b := NewRedisBackend(nil, "")
	if b.indexKey() != "pronouns:personas" {
		t.Errorf("indexKey = %q", b.indexKey())
	}
}
