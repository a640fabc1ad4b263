package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/model"
)

const (
	dayLayout      = "2006-01-02"
	statsTTL       = 90 * 24 * time.Hour
	idempotencyTTL = 24 * time.Hour
)

var ErrStatsUnavailable = errors.New("stats store is not configured")

// StatsService keeps per-day order counters in Redis. Revenue is stored in
// minor units so it can use integer increments.
type StatsService struct {
	redisClient *redis.Client
}

func NewStatsService(redisClient *redis.Client) *StatsService {
	return &StatsService{redisClient: redisClient}
}

func ProcessedKey(orderID uuid.UUID) string { return "order_processed:" + orderID.String() }

func OrdersKey(day time.Time) string { return "stats:orders:" + day.UTC().Format(dayLayout) }

func RevenueKey(day time.Time) string { return "stats:revenue:" + day.UTC().Format(dayLayout) }

// Record counts order once. It reports false when the order was already
// recorded.
func (s *StatsService) Record(ctx context.Context, order *model.Order) (bool, error) {
	if s.redisClient == nil {
		return false, ErrStatsUnavailable
	}

	key := ProcessedKey(order.ID)
	ordersKey, revenueKey := OrdersKey(order.CreatedAt), RevenueKey(order.CreatedAt)
	cents := order.TotalPrice.Shift(2).Round(0).IntPart()

	recorded := false
	err := s.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, "1", idempotencyTTL)
			pipe.IncrBy(ctx, ordersKey, 1)
			pipe.IncrBy(ctx, revenueKey, cents)
			pipe.Expire(ctx, ordersKey, statsTTL)
			pipe.Expire(ctx, revenueKey, statsTTL)
			return nil
		})
		if err == nil {
			recorded = true
		}
		return err
	}, key)
	if err != nil {
		return false, fmt.Errorf("record order stats: %w", err)
	}
	return recorded, nil
}

func (s *StatsService) Daily(ctx context.Context, day time.Time) (*dto.DailyStatsResponse, error) {
	if s.redisClient == nil {
		return nil, ErrStatsUnavailable
	}

	vals, err := s.redisClient.MGet(ctx, OrdersKey(day), RevenueKey(day)).Result()
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}

	orders, err := redisInt(vals[0])
	if err != nil {
		return nil, err
	}
	cents, err := redisInt(vals[1])
	if err != nil {
		return nil, err
	}
	return &dto.DailyStatsResponse{
		Date:    day.UTC().Format(dayLayout),
		Orders:  orders,
		Revenue: decimal.New(cents, -2),
	}, nil
}

// ParseDay parses a YYYY-MM-DD date; an empty string means today.
func ParseDay(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.UTC(), nil
	}
	day, err := time.Parse(dayLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return day, nil
}

func redisInt(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected stats value %T", v)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse stats value: %w", err)
	}
	return d.IntPart(), nil
}
