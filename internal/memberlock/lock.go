// Package memberlock serializes the utilization read-modify-write for claims
// belonging to the same member. A redis lease lock covers multi-instance
// deployments; without redis a process-local keyed mutex is used.
package memberlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultTTL      = 30 * time.Second
	acquireInterval = 25 * time.Millisecond
)

var ErrNotAcquired = errors.New("member lock not acquired")

type Locker struct {
	client *redis.Client
	script *redis.Script

	mu    sync.Mutex
	local map[string]*sync.Mutex
}

func New(client *redis.Client) *Locker {
	l := &Locker{
		client: client,
		local:  make(map[string]*sync.Mutex),
	}
	if client != nil {
		l.script = redis.NewScript(lockReleaseScript)
	}
	return l
}

// Acquire blocks until the member lock is held or the context is done. The
// returned release function is idempotent.
func (l *Locker) Acquire(ctx context.Context, memberKey string) (func(), error) {
	if memberKey == "" {
		return nil, errors.New("member lock key is empty")
	}
	if l.client == nil {
		return l.acquireLocal(memberKey), nil
	}
	return l.acquireRedis(ctx, memberKey)
}

func (l *Locker) acquireLocal(memberKey string) func() {
	l.mu.Lock()
	m, ok := l.local[memberKey]
	if !ok {
		m = &sync.Mutex{}
		l.local[memberKey] = m
	}
	l.mu.Unlock()

	m.Lock()
	var once sync.Once
	return func() {
		once.Do(m.Unlock)
	}
}

func (l *Locker) acquireRedis(ctx context.Context, memberKey string) (func(), error) {
	key := "vitalis:memberlock:" + memberKey
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, defaultTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(acquireInterval):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.script.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}
	return release, nil
}
