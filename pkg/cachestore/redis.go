package cachestore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/iyulab/fileflux/pkg/model"
)

// RedisStore is the rueidis-backed Store alternative, for deployments
// that want the parsed-content cache shared across process instances.
// Grounded on the teacher's pkg/redis/client.go command-building style.
type RedisStore struct {
	client rueidis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// RedisOptions configures RedisStore construction.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key this store writes, so a shared Redis
	// instance can host multiple FileFlux deployments.
	Prefix string
}

// NewRedisStore dials rueidis and returns a RedisStore.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("cachestore: failed to create redis client: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "fileflux:parsed:"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) fullKey(key string) string { return r.prefix + key }

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (model.ParsedContent, bool, error) {
	cmd := r.client.B().Get().Key(r.fullKey(key)).Build()
	result := r.client.Do(ctx, cmd)
	if result.Error() != nil {
		if rueidis.IsRedisNil(result.Error()) {
			return model.ParsedContent{}, false, nil
		}
		return model.ParsedContent{}, false, fmt.Errorf("cachestore: redis get: %w", result.Error())
	}
	raw, err := result.ToString()
	if err != nil {
		return model.ParsedContent{}, false, fmt.Errorf("cachestore: redis get decode: %w", err)
	}
	if raw == "" {
		return model.ParsedContent{}, false, nil
	}
	content, err := unmarshalContent([]byte(raw))
	if err != nil {
		return model.ParsedContent{}, false, fmt.Errorf("cachestore: unmarshal cached content: %w", err)
	}
	return content, true, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key string, content model.ParsedContent, ttl time.Duration) error {
	data, err := marshalContent(content)
	if err != nil {
		return fmt.Errorf("cachestore: marshal content: %w", err)
	}

	builder := r.client.B().Set().Key(r.fullKey(key)).Value(string(data))
	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = builder.ExSeconds(int64(ttl.Seconds())).Build()
	} else {
		cmd = builder.Build()
	}
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cachestore: redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(r.fullKey(key)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cachestore: redis delete: %w", err)
	}
	return nil
}

// Close implements Store.
func (r *RedisStore) Close() { r.client.Close() }
