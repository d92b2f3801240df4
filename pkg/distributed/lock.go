package distributed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotAcquired = errors.New("lock not acquired")
	ErrNotHeld     = errors.New("lock was not held by this instance")
)

const pollInterval = 50 * time.Millisecond

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends the TTL only if the key still carries our token.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Lock is a single-holder Redis lock (SET NX PX) renewed at half its TTL
// while held.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration

	mu        sync.Mutex
	stopRenew chan struct{}
	renewDone chan struct{}
}

func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryAcquire makes one attempt to take the lock.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopRenew != nil {
		return true, nil
	}

	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if ok {
		l.stopRenew = make(chan struct{})
		l.renewDone = make(chan struct{})
		go l.renew(l.stopRenew, l.renewDone)
	}
	return ok, nil
}

// Acquire polls until the lock is taken, wait elapses or ctx is done.
func (l *Lock) Acquire(ctx context.Context, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s", ErrNotAcquired, l.key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release stops renewal and deletes the key if this instance still holds it.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	stop, done := l.stopRenew, l.renewDone
	l.stopRenew, l.renewDone = nil, nil
	l.mu.Unlock()

	if stop == nil {
		return ErrNotHeld
	}
	close(stop)
	<-done

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

func (l *Lock) renew(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/2)
			n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil || n == 0 {
				// lost the key; Release will report it
				return
			}
		}
	}
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, client *redis.Client, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) (err error) {
	lock := NewLock(client, key, ttl)
	if err := lock.Acquire(ctx, wait); err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn(ctx)
}
