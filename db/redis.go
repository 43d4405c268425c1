// db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
)

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	encryptionKey = []byte(viper.GetString("redis.encryptionKey"))
	if len(encryptionKey) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes")
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func policySetCacheKey(id string, version int) string {
	if version == 0 {
		return fmt.Sprintf("policyset:%s:latest", id)
	}
	return fmt.Sprintf("policyset:%s:%d", id, version)
}

// CachePolicySet stores one policy set version, encrypted at rest. With
// asLatest it also fills the id's "latest" slot, which carries the
// configured TTL; explicit version slots are immutable and never expire.
func CachePolicySet(ctx context.Context, set *model.PolicySet, asLatest bool) error {
	setJSON, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal policy set: %w", err)
	}

	encrypted, err := encrypt(setJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt policy set: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(encrypted)

	version := set.Version
	ttl := time.Duration(0)
	if asLatest {
		version = 0
		ttl = viper.GetDuration("redis.defaultCacheTTL")
	}
	key := policySetCacheKey(set.ID, version)
	if err := RedisClient.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache policy set: %w", err)
	}

	logger.Debug("Policy set cached",
		zap.String("policySetID", set.ID),
		zap.Int("version", set.Version),
		zap.Bool("asLatest", asLatest))
	return nil
}

// GetCachedPolicySet returns the cached policy set, or nil on a miss.
// Version 0 reads the "latest" slot.
func GetCachedPolicySet(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	key := policySetCacheKey(id, version)
	encoded, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Policy set not found in cache",
			zap.String("policySetID", id), zap.Int("version", version))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get policy set from cache: %w", err)
	}

	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode policy set: %w", err)
	}
	setJSON, err := decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt policy set: %w", err)
	}

	var set model.PolicySet
	if err := json.Unmarshal(setJSON, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy set: %w", err)
	}
	logger.Debug("Policy set retrieved from cache",
		zap.String("policySetID", id), zap.Int("version", version))
	return &set, nil
}

// InvalidateCachedLatest drops the "latest" slot for an id after a Put.
func InvalidateCachedLatest(ctx context.Context, id string) error {
	key := policySetCacheKey(id, 0)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached policy set: %w", err)
	}
	logger.Debug("Cached latest policy set invalidated", zap.String("policySetID", id))
	return nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
