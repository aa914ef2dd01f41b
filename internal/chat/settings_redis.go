package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const settingsTTL = 30 * 24 * time.Hour

// RedisSettingsBackend persists player settings as JSON blobs in Redis,
// with an index set so Clear can drop every entry at once.
type RedisSettingsBackend struct {
	rdb *redis.Client
}

func NewRedisSettingsBackend(rdb *redis.Client) *RedisSettingsBackend {
	return &RedisSettingsBackend{rdb: rdb}
}

func (b *RedisSettingsBackend) key(id uuid.UUID) string { return "chat:settings:" + id.String() }
func (b *RedisSettingsBackend) keyIndex() string        { return "chat:settings:index" }

func (b *RedisSettingsBackend) Load(ctx context.Context, id uuid.UUID) (*StoredSettings, error) {
	raw, err := b.rdb.Get(ctx, b.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s StoredSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (b *RedisSettingsBackend) Save(ctx context.Context, id uuid.UUID, s *StoredSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := b.rdb.Set(ctx, b.key(id), raw, settingsTTL).Err(); err != nil {
		return err
	}
	if err := b.rdb.SAdd(ctx, b.keyIndex(), id.String()).Err(); err != nil {
		return err
	}
	return b.rdb.Expire(ctx, b.keyIndex(), settingsTTL).Err()
}

func (b *RedisSettingsBackend) Clear(ctx context.Context) error {
	ids, err := b.rdb.SMembers(ctx, b.keyIndex()).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, "chat:settings:"+id)
	}
	keys = append(keys, b.keyIndex())
	return b.rdb.Del(ctx, keys...).Err()
}
