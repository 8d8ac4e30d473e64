// Package cache keeps the active-alert answer in Redis so the alert poll
// endpoint stays cheap under sub-second polling from every logged-in session.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/pkg/config"
)

const activeAlertKey = "alerts:active"

// a sentinel distinguishing "cached: no active alert" from a cache miss
const noActiveAlert = "none"

type AlertCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertCache connects to Redis. Returns nil if the URL is empty; callers
// treat a nil cache as always-miss.
func NewAlertCache(cfg config.RedisConfig, ttl time.Duration) (*AlertCache, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &AlertCache{client: client, ttl: ttl}, nil
}

// GetActive returns (alert, found). found=false means cache miss; a nil alert
// with found=true means "no active alert" was cached.
func (c *AlertCache) GetActive(ctx context.Context) (*domain.EmergencyAlert, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, activeAlertKey).Result()
	if err != nil {
		return nil, false
	}
	if raw == noActiveAlert {
		return nil, true
	}

	var a domain.EmergencyAlert
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, false
	}
	return &a, true
}

// SetActive caches the poll answer, alert == nil included.
func (c *AlertCache) SetActive(ctx context.Context, alert *domain.EmergencyAlert) error {
	if c == nil {
		return nil
	}

	payload := noActiveAlert
	if alert != nil {
		raw, err := json.Marshal(alert)
		if err != nil {
			return err
		}
		payload = string(raw)
	}
	return c.client.Set(ctx, activeAlertKey, payload, c.ttl).Err()
}

// Invalidate drops the cached answer after any alert state change.
func (c *AlertCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, activeAlertKey).Err()
}

func (c *AlertCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
