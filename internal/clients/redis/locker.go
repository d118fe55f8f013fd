package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/adaptive-engine/internal/engine"
	"github.com/yungbote/adaptive-engine/internal/platform/envutil"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

// releaseScript deletes the key only while it still holds our token, so a holder whose
// lease expired cannot release someone else's lock.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the lease only while the key still holds our token.
var refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL bounds how long a crashed holder blocks others. Live holders renew it every
	// TTL/3 until they unlock.
	TTL   time.Duration
	Retry time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Prefix:   envutil.String("REDIS_LOCK_PREFIX", "adaptive-engine:lock:"),
		TTL:      envutil.Seconds("REDIS_LOCK_TTL_SECONDS", 30),
		Retry:    envutil.Millis("REDIS_LOCK_RETRY_MS", 50),
	}
}

// Locker is a distributed engine.Locker backed by SET NX PX.
type Locker struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

var _ engine.Locker = (*Locker)(nil)

func NewLocker(cfg Config, log *logger.Logger) (*Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newLocker(rdb, cfg, log), nil
}

func newLocker(rdb *goredis.Client, cfg Config, log *logger.Logger) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 50 * time.Millisecond
	}
	return &Locker{
		log:    log.With("service", "RedisLocker"),
		rdb:    rdb,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		retry:  cfg.Retry,
	}
}

// Lock polls until the key is acquired or ctx is done. The lease is renewed in the
// background until the returned func is called, so holders may outlive the TTL.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	k := l.prefix + key
	t := time.NewTicker(l.retry)
	defer t.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.hold(k, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// hold starts the lease watchdog and returns the unlock func.
func (l *Locker) hold(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(l.ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
			}
			if !l.refresh(key, token) {
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(key, token)
		})
	}
}

// refresh reports whether the lease is still ours. Transient errors keep the watchdog
// running; the next tick retries before the lease runs out.
func (l *Locker) refresh(key, token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
	defer cancel()
	n, err := refreshScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		l.log.Warn("redis lock refresh failed", "key", key, "error", err)
		return true
	}
	if n == 0 {
		l.log.Warn("redis lock lost before unlock", "key", key)
		return false
	}
	return true
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
	if err != nil {
		l.log.Warn("redis unlock failed", "key", key, "error", err)
		return
	}
	if n == 0 {
		l.log.Warn("redis lock expired before unlock", "key", key)
	}
}

func (l *Locker) Close() error {
	return l.rdb.Close()
}

func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
