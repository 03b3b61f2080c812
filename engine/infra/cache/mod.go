package cache

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/miniflow/miniflow/pkg/config"
	"github.com/miniflow/miniflow/pkg/logger"
)

// FromAppConfig builds a cache Config from the centralized application
// configuration's Redis section.
func FromAppConfig(redisCfg *config.RedisConfig) *Config {
	host, port := splitAddr(redisCfg.Addr)
	return &Config{
		Host:     host,
		Port:     port,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}
}

func splitAddr(addr string) (host, port string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, "6379"
	}
	return host, port
}

type Cache struct {
	Redis        *Redis
	LockManager  LockManager
	Notification NotificationSystem
}

// SetupCache connects to the Redis instance described by the application
// configuration. When Redis is not configured (RedisConfig.Enabled reports
// false), it returns a nil Cache: distributed locking and pub/sub notification
// are optional, and callers fall back to in-process equivalents.
func SetupCache(ctx context.Context) (*Cache, func(), error) {
	log := logger.FromContext(ctx)
	appCfg := config.FromContext(ctx)
	if appCfg == nil {
		return nil, nil, fmt.Errorf("missing configuration in context")
	}
	if !appCfg.Redis.Enabled() {
		log.Info("Redis not configured; distributed cache disabled")
		return nil, func() {}, nil
	}

	cacheCfg := FromAppConfig(&appCfg.Redis)
	r, err := NewRedis(ctx, cacheCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	lm, err := NewRedisLockManager(r)
	if err != nil {
		_ = r.Close()
		return nil, nil, fmt.Errorf("build lock manager: %w", err)
	}
	ns, err := NewRedisNotificationSystem(r, cacheCfg)
	if err != nil {
		_ = r.Close()
		return nil, nil, fmt.Errorf("build notification system: %w", err)
	}
	c := &Cache{Redis: r, LockManager: lm, Notification: ns}
	cleanup := func() { _ = c.Close(context.WithoutCancel(ctx)) }
	log.Info("Distributed cache initialized")
	return c, cleanup, nil
}

// Close gracefully shuts down the cache's components.
func (c *Cache) Close(_ context.Context) error {
	var errs []error
	if c.Notification != nil {
		if err := c.Notification.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notification system: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis client: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthCheck performs a health check on all cache components.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if c.Redis != nil {
		return c.Redis.HealthCheck(ctx)
	}
	return nil
}

// ExecutionNotifier adapts a NotificationSystem's richer PublishExecutionEvent
// to the single-event-per-terminal-transition shape the collector loop drives.
type ExecutionNotifier struct {
	ns NotificationSystem
}

func NewExecutionNotifier(ns NotificationSystem) *ExecutionNotifier {
	return &ExecutionNotifier{ns: ns}
}

func (n *ExecutionNotifier) PublishExecutionEvent(ctx context.Context, executionID, status string, data map[string]any) error {
	return n.ns.PublishExecutionEvent(ctx, executionID, "", "terminal", status, data)
}
