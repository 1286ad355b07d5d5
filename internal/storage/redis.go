package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kalambet/pronouns/internal/pronoun"
)

// RedisBackend keeps persona pronouns in Redis, one hash per persona under
// "<prefix>:persona:<id>" plus an index set "<prefix>:personas".
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a backend over client. An empty prefix defaults to
// "pronouns".
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "pronouns"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return client, nil
}

func (b *RedisBackend) indexKey() string {
	return b.prefix + ":personas"
}

func (b *RedisBackend) personaKey(id string) string {
	return b.prefix + ":persona:" + id
}

// LoadPronouns reads every indexed persona. Missing hash fields load as "".
func (b *RedisBackend) LoadPronouns(ctx context.Context) (map[string]pronoun.Record, error) {
	ids, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing personas: %w", err)
	}

	result := make(map[string]pronoun.Record, len(ids))
	for _, id := range ids {
		fields, err := b.client.HGetAll(ctx, b.personaKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("reading persona %q: %w", id, err)
		}
		var r pronoun.Record
		for _, slot := range pronoun.Slots {
			r.Set(slot, fields[slot.Key()])
		}
		result[id] = r
	}
	return result, nil
}

// SavePronouns replaces the stored personas with records atomically.
func (b *RedisBackend) SavePronouns(ctx context.Context, records map[string]pronoun.Record) error {
	existing, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("listing personas: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range existing {
			if _, keep := records[id]; !keep {
				pipe.Del(ctx, b.personaKey(id))
			}
		}
		pipe.Del(ctx, b.indexKey())
		for id, r := range records {
			fields := make(map[string]any, len(pronoun.Slots))
			for _, slot := range pronoun.Slots {
				fields[slot.Key()] = r.Get(slot)
			}
			pipe.HSet(ctx, b.personaKey(id), fields)
			pipe.SAdd(ctx, b.indexKey(), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving personas: %w", err)
	}
	return nil
}
