package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kick-analyzer/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	Database    int           `yaml:"database"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	KeyPrefix   string        `yaml:"key_prefix"`
	// TTL bounds how long a record is kept; zero keeps records forever.
	TTL time.Duration `yaml:"ttl"`
}

// RedisStore keeps records as JSON strings plus a sorted-set index by time
type RedisStore struct {
	client    redis.UniversalClient
	logger    *logrus.Logger
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects and pings Redis
func NewRedisStore(cfg RedisConfig, logger *logrus.Logger) (*RedisStore, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.Database,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.TTL, logger), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "kick:session:"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	logger.WithFields(logrus.Fields{
		"key_prefix": keyPrefix,
		"ttl":        ttl,
	}).Info("Redis session store initialized")

	return &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (r *RedisStore) Save(ctx context.Context, record *models.SessionRecord) (*models.SessionRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}

	saved := *record
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.RecordedAt.IsZero() {
		saved.RecordedAt = time.Now()
	}

	data, err := json.Marshal(&saved)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.recordKey(saved.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(saved.RecordedAt.UnixMilli()),
		Member: saved.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store session in Redis: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"id":        saved.ID,
		"athlete":   saved.Athlete,
		"kick_type": saved.KickType,
	}).Debug("Session stored in Redis")

	return &saved, nil
}

func (r *RedisStore) GetRecent(ctx context.Context, limit int) ([]*models.SessionRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	records := make([]*models.SessionRecord, 0, len(values))
	var expired []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// record expired but is still indexed
			expired = append(expired, ids[i])
			continue
		}
		var rec models.SessionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			r.logger.WithError(err).WithField("id", ids[i]).Warn("Skipping corrupt session record")
			continue
		}
		records = append(records, &rec)
	}

	if len(expired) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), expired...).Err(); err != nil {
			r.logger.WithError(err).Warn("Failed to prune expired session index entries")
		}
	}

	return records, nil
}

// Close releases the Redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) recordKey(id string) string {
	return r.keyPrefix + id
}

func (r *RedisStore) indexKey() string {
	return r.keyPrefix + "index"
}
