package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	paymentInfoKeyPrefix = "payment_info:"

	// TTL для кеша
	defaultCacheTTL = 15 * time.Minute
)

// PaymentInfoCache кеширует сводку платежного метода по умолчанию.
// Инвалидируется при отвязке метода оплаты.
type PaymentInfoCache interface {
	CachePaymentInfo(ctx context.Context, userID string, info *models.PaymentMethodSummary) error
	GetCachedPaymentInfo(ctx context.Context, userID string) (*models.PaymentMethodSummary, error)
	InvalidatePaymentInfo(ctx context.Context, userID string) error
	Close() error
}

// RedisCacheRepository реализует PaymentInfoCache с использованием Redis.
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый Redis-кеш и проверяет соединение.
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis.
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CachePaymentInfo кеширует сводку платежного метода пользователя.
func (r *RedisCacheRepository) CachePaymentInfo(ctx context.Context, userID string, info *models.PaymentMethodSummary) error {
	key := paymentInfoKeyPrefix + userID

	data, err := json.Marshal(info)
	if err != nil {
		r.log.Errorw("Failed to marshal payment info for caching", "error", err, "userID", userID)
		return fmt.Errorf("failed to marshal payment info: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache payment info in Redis", "error", err, "userID", userID)
		return fmt.Errorf("failed to cache payment info: %w", err)
	}

	r.log.Debugw("Payment info cached", "userID", userID)
	return nil
}

// GetCachedPaymentInfo возвращает сводку из кеша или domain.ErrNotFound.
func (r *RedisCacheRepository) GetCachedPaymentInfo(ctx context.Context, userID string) (*models.PaymentMethodSummary, error) {
	key := paymentInfoKeyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		r.log.Errorw("Failed to get payment info from Redis", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get cached payment info: %w", err)
	}

	var info models.PaymentMethodSummary
	if err := json.Unmarshal(data, &info); err != nil {
		r.log.Errorw("Failed to unmarshal cached payment info", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to unmarshal cached payment info: %w", err)
	}

	return &info, nil
}

// InvalidatePaymentInfo удаляет сводку из кеша (после смены/отвязки метода).
func (r *RedisCacheRepository) InvalidatePaymentInfo(ctx context.Context, userID string) error {
	key := paymentInfoKeyPrefix + userID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to invalidate payment info cache", "error", err, "userID", userID)
		return fmt.Errorf("failed to invalidate payment info cache: %w", err)
	}

	r.log.Debugw("Payment info cache invalidated", "userID", userID)
	return nil
}
