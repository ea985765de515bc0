package redis

import (
	"context"
	"fmt"
	"time"

	"unsubscribe_service/internal/models"
	"unsubscribe_service/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func recordKey(email string) string {
	return fmt.Sprintf("unsubscribe:%s", email)
}

// SaveUnsubscribe overwrites the record hash for the address. Records carry
// no TTL: an opt-out never expires.
func (r *RedisRepo) SaveUnsubscribe(ctx context.Context, rec models.UnsubscribeRecord) error {
	const op = "storage.redis.SaveUnsubscribe"

	data := map[string]interface{}{
		"email":           rec.Email,
		"unsubscribed_at": rec.UnsubscribedAt.Format(time.RFC3339),
		"source":          string(rec.Source),
		"user_agent":      rec.UserAgent,
	}

	if err := r.client.HSet(ctx, recordKey(rec.Email), data).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) GetUnsubscribe(ctx context.Context, email string) (models.UnsubscribeRecord, error) {
	const op = "storage.redis.GetUnsubscribe"

	fields, err := r.client.HGetAll(ctx, recordKey(email)).Result()
	if err != nil {
		return models.UnsubscribeRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(fields) == 0 {
		return models.UnsubscribeRecord{}, storage.ErrRecordNotFound
	}

	unsubscribedAt, err := time.Parse(time.RFC3339, fields["unsubscribed_at"])
	if err != nil {
		return models.UnsubscribeRecord{}, fmt.Errorf("%s: failed to parse timestamp: %w", op, err)
	}

	return models.UnsubscribeRecord{
		Email:          fields["email"],
		UnsubscribedAt: unsubscribedAt,
		Source:         models.UnsubscribeSource(fields["source"]),
		UserAgent:      fields["user_agent"],
	}, nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
