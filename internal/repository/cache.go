package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

const (
	cacheKeyPrefix = "fraudgpt:"

	// DefaultCacheTTL bounds how long a cached entry survives without invalidation.
	DefaultCacheTTL = 10 * time.Minute
)

// CachedStore is a cache-aside decorator over a Store. Session records and message
// pages are cached in Redis; every write to a session bumps its generation and drops
// its keys. A fill is written only if the generation did not move while the value was
// loaded, so a slow reader never resurrects a deleted session or a stale page.
//
// When dropping keys fails the session is marked pending and its reads bypass Redis
// until a later invalidation succeeds.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger

	mu       sync.Mutex
	pending  map[string]struct{}
	failures atomic.Uint64
}

// NewRedisClient parses url and verifies the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewCachedStore wraps backing with a Redis cache.
func NewCachedStore(backing Store, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		Store:   backing,
		client:  client,
		ttl:     ttl,
		log:     log,
		pending: make(map[string]struct{}),
	}
}

func sessionKey(sessionID string) string {
	return cacheKeyPrefix + "session:" + sessionID
}

func messagesKey(sessionID string) string {
	return cacheKeyPrefix + "messages:" + sessionID
}

func generationKey(sessionID string) string {
	return cacheKeyPrefix + "gen:" + sessionID
}

var errStaleFill = errors.New("cache generation moved")

// stamp is the cache state observed before a value is loaded from the store.
type stamp struct {
	gen      string
	failures uint64
	ok       bool
}

// CreateSession stores the session and primes its cache entry.
func (c *CachedStore) CreateSession(ctx context.Context, session *domain.Session) error {
	st := c.snapshot(ctx, session.ID)
	if err := c.Store.CreateSession(ctx, session); err != nil {
		return err
	}
	c.fillSession(ctx, st, session)
	return nil
}

// GetSession serves the session from cache when possible.
func (c *CachedStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if !c.usable(ctx, sessionID) {
		return c.Store.GetSession(ctx, sessionID)
	}

	data, err := c.client.Get(ctx, sessionKey(sessionID)).Bytes()
	switch {
	case err == nil:
		var session domain.Session
		if jsonErr := json.Unmarshal(data, &session); jsonErr == nil {
			return &session, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("session_id", sessionID).Warn("session cache read failed")
	}

	st := c.snapshot(ctx, sessionID)
	session, err := c.Store.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return session, err
	}
	c.fillSession(ctx, st, session)
	return session, nil
}

// TouchSession updates the backing store and invalidates the session's cache.
func (c *CachedStore) TouchSession(ctx context.Context, sessionID string, t time.Time) error {
	if err := c.Store.TouchSession(ctx, sessionID, t); err != nil {
		return err
	}
	_ = c.invalidate(ctx, sessionID)
	return nil
}

// DeleteSession deletes the session and invalidates its cache.
func (c *CachedStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.Store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	_ = c.invalidate(ctx, sessionID)
	return nil
}

// InsertMessage stores the message and invalidates its session's cache.
func (c *CachedStore) InsertMessage(ctx context.Context, message *domain.Message) error {
	if err := c.Store.InsertMessage(ctx, message); err != nil {
		return err
	}
	_ = c.invalidate(ctx, message.SessionID)
	return nil
}

// DeleteMessages deletes the messages and invalidates the session's cache.
func (c *CachedStore) DeleteMessages(ctx context.Context, sessionID string) error {
	if err := c.Store.DeleteMessages(ctx, sessionID); err != nil {
		return err
	}
	_ = c.invalidate(ctx, sessionID)
	return nil
}

// ListMessages serves a message page from cache when possible.
func (c *CachedStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	return c.cachedPage(ctx, sessionID, "first:"+strconv.Itoa(limit), func() ([]domain.Message, error) {
		return c.Store.ListMessages(ctx, sessionID, limit)
	})
}

// ListRecentMessages serves the recent window from cache when possible.
func (c *CachedStore) ListRecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	return c.cachedPage(ctx, sessionID, "recent:"+strconv.Itoa(n), func() ([]domain.Message, error) {
		return c.Store.ListRecentMessages(ctx, sessionID, n)
	})
}

// Ping checks both Redis and the backing store.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return c.Store.Ping(ctx)
}

// Close closes the Redis client and the backing store.
func (c *CachedStore) Close() error {
	cacheErr := c.client.Close()
	if err := c.Store.Close(); err != nil {
		return err
	}
	return cacheErr
}

func (c *CachedStore) cachedPage(ctx context.Context, sessionID, field string, load func() ([]domain.Message, error)) ([]domain.Message, error) {
	if !c.usable(ctx, sessionID) {
		return load()
	}

	key := messagesKey(sessionID)
	data, err := c.client.HGet(ctx, key, field).Bytes()
	switch {
	case err == nil:
		var messages []domain.Message
		if jsonErr := json.Unmarshal(data, &messages); jsonErr == nil {
			return messages, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("session_id", sessionID).Warn("message cache read failed")
	}

	st := c.snapshot(ctx, sessionID)
	messages, err := load()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return messages, nil
	}
	c.fill(ctx, sessionID, st, func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, key, field, payload)
		pipe.Expire(ctx, key, c.ttl)
	})
	return messages, nil
}

func (c *CachedStore) fillSession(ctx context.Context, st stamp, session *domain.Session) {
	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	c.fill(ctx, session.ID, st, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, sessionKey(session.ID), data, c.ttl)
	})
}

// snapshot records the session's generation before a load. The stamp is unusable when
// Redis cannot be read.
func (c *CachedStore) snapshot(ctx context.Context, sessionID string) stamp {
	st := stamp{failures: c.failures.Load()}
	gen, err := c.client.Get(ctx, generationKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return st
	}
	st.gen = gen
	st.ok = true
	return st
}

// fill runs write in a transaction that aborts if the session's generation moved
// since st was taken.
func (c *CachedStore) fill(ctx context.Context, sessionID string, st stamp, write func(redis.Pipeliner)) {
	if !st.ok {
		return
	}
	genKey := generationKey(sessionID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		gen, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if gen != st.gen || c.failures.Load() != st.failures || c.isPending(sessionID) {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil, errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
	default:
		c.log.WithError(err).WithField("session_id", sessionID).Warn("cache write failed")
	}
}

// invalidate bumps the session's generation and drops its keys. On failure the
// session stays pending until an invalidation succeeds.
func (c *CachedStore) invalidate(ctx context.Context, sessionID string) error {
	genKey := generationKey(sessionID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, 2*c.ttl)
		pipe.Del(ctx, sessionKey(sessionID), messagesKey(sessionID))
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failures.Add(1)
		c.pending[sessionID] = struct{}{}
		c.log.WithError(err).WithField("session_id", sessionID).Warn("cache invalidation failed, bypassing cache for session")
		return err
	}
	delete(c.pending, sessionID)
	return nil
}

func (c *CachedStore) isPending(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[sessionID]
	return ok
}

// usable reports whether the session's cache may be read and filled, retrying a
// pending invalidation first.
func (c *CachedStore) usable(ctx context.Context, sessionID string) bool {
	if !c.isPending(sessionID) {
		return true
	}
	return c.invalidate(ctx, sessionID) == nil
}

// Ensure CachedStore implements Store at compile time.
var _ Store = (*CachedStore)(nil)
