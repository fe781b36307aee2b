package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yashrajoria/storefront-bff/models"
)

type RedisDeviceStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeviceStore returns a store whose keys expire after ttl; zero
// means keys never expire.
func NewRedisDeviceStore(client *redis.Client, ttl time.Duration) *RedisDeviceStore {
	return &RedisDeviceStore{client: client, ttl: ttl}
}

func (r *RedisDeviceStore) cartKey(deviceID string) string {
	return fmt.Sprintf("sf:device:%s:cart", deviceID)
}

func (r *RedisDeviceStore) draftKey(deviceID, form string) string {
	return fmt.Sprintf("sf:device:%s:draft:%s", deviceID, form)
}

func (r *RedisDeviceStore) GetCartID(ctx context.Context, deviceID string) (*int64, error) {
	val, err := r.client.Get(ctx, r.cartKey(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt cart id for device %s: %w", deviceID, err)
	}
	return &id, nil
}

func (r *RedisDeviceStore) SetCartID(ctx context.Context, deviceID string, cartID int64) error {
	return r.client.Set(ctx, r.cartKey(deviceID), strconv.FormatInt(cartID, 10), r.ttl).Err()
}

func (r *RedisDeviceStore) ClearCartID(ctx context.Context, deviceID string) error {
	return r.client.Del(ctx, r.cartKey(deviceID)).Err()
}

func (r *RedisDeviceStore) GetDraft(ctx context.Context, deviceID, form string) (*models.Draft, error) {
	data, err := r.client.Get(ctx, r.draftKey(deviceID, form)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var draft models.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *RedisDeviceStore) SaveDraft(ctx context.Context, deviceID string, draft *models.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.draftKey(deviceID, draft.Form), data, r.ttl).Err()
}

func (r *RedisDeviceStore) DeleteDraft(ctx context.Context, deviceID, form string) error {
	return r.client.Del(ctx, r.draftKey(deviceID, form)).Err()
}
