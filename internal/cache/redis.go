package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"clinic-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	revenueKeyPrefix = "revenue:report:"
	revenueKeySet    = "revenue:keys"
	revenueTTL       = 10 * time.Minute
)

var client *redis.Client

// Init initializes the Redis connection. The cache is optional; every helper
// degrades to a no-op when the client is nil.
func Init() error {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// hashCredentials creates a hash of email+password for cache key
func hashCredentials(email, password string) string {
	h := sha256.New()
	h.Write([]byte(email + ":" + password))
	return "auth:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// GetCachedAuth checks if credentials are cached and valid
func GetCachedAuth(ctx context.Context, email, password string) (int64, bool) {
	if client == nil {
		return 0, false
	}
	key := hashCredentials(email, password)
	userID, err := client.Get(ctx, key).Int64()
	if err != nil {
		return 0, false
	}
	return userID, true
}

// CacheAuth caches valid credentials for 15 minutes
func CacheAuth(ctx context.Context, email, password string, userID int64) {
	if client == nil {
		return
	}
	key := hashCredentials(email, password)
	client.Set(ctx, key, userID, 15*time.Minute)
}

// InvalidateAuth removes cached auth for a user (on password change/logout)
func InvalidateAuth(ctx context.Context, email, password string) {
	if client == nil {
		return
	}
	key := hashCredentials(email, password)
	client.Del(ctx, key)
}

// revenueKey derives a stable cache key from the report filter.
func revenueKey(filter *models.RevenueFilter) string {
	raw, _ := json.Marshal(filter)
	h := sha256.Sum256(raw)
	return revenueKeyPrefix + hex.EncodeToString(h[:])[:32]
}

// GetCachedRevenueReport returns a cached report for the filter if present.
func GetCachedRevenueReport(ctx context.Context, filter *models.RevenueFilter) (*models.RevenueReport, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, revenueKey(filter)).Bytes()
	if err != nil {
		return nil, false
	}
	var report models.RevenueReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false
	}
	return &report, true
}

// CacheRevenueReport caches a computed report and tracks its key so a later
// financial write can drop every cached report at once.
func CacheRevenueReport(ctx context.Context, filter *models.RevenueFilter, report *models.RevenueReport) {
	if client == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	key := revenueKey(filter)
	client.Set(ctx, key, data, revenueTTL)
	client.SAdd(ctx, revenueKeySet, key)
	client.Expire(ctx, revenueKeySet, revenueTTL)
}

// InvalidateRevenueReports drops all cached revenue reports. Called after any
// invoice or payment write.
func InvalidateRevenueReports(ctx context.Context) {
	if client == nil {
		return
	}
	keys, err := client.SMembers(ctx, revenueKeySet).Result()
	if err != nil {
		return
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
	client.Del(ctx, revenueKeySet)
}
