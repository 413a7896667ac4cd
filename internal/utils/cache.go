package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Key building
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache key builders. Keeping them in one place means mutation paths and read
// paths cannot drift on key format.

// BalanceKey is the cache key for a user's balance.
func BalanceKey(userID uint) string {
	return "balance:user:" + strconv.Itoa(int(userID))
}

// ExpensesKey is the cache key for a user's transaction listing, per status
// filter ("" means all).
func ExpensesKey(userID uint, status string) string {
	return "expenses:user:" + strconv.Itoa(int(userID)) + ":status:" + status
}

// GetCache retrieves a value from Redis and unmarshals it into dest. A nil
// client reports a miss, which lets tests run without Redis.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(val), dest)
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}

// InvalidateUserCaches drops every cached view of a user's money after a
// ledger mutation: the balance and all status variants of the listing.
func InvalidateUserCaches(ctx context.Context, rdb *redis.Client, userID uint) error {
	return DeleteCache(ctx, rdb,
		BalanceKey(userID),
		ExpensesKey(userID, ""),
		ExpensesKey(userID, "pending"),
		ExpensesKey(userID, "confirmed"),
	)
}
