package bucketsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgredis "github.com/minpic/core/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
)

// State guards against concurrent runs per source and keeps the last result.
type State interface {
	// Acquire returns a release func, or ok=false when a run is in progress.
	Acquire(ctx context.Context, configID string) (release func(), ok bool, err error)
	SaveResult(ctx context.Context, res Result) error
	LastResult(ctx context.Context, configID string) (*Result, error)
}

// lockTTL bounds how long a crashed process can block a source. A live run
// renews the key every lockTTL/3, so long scans keep the guard.
const lockTTL = 5 * time.Minute

const (
	lockKeyPrefix   = "minpic:sync:lock:"
	resultKeyPrefix = "minpic:sync:last:"
)

// RedisState shares the guard across processes.
type RedisState struct {
	rc  *pkgredis.Client
	ttl time.Duration
}

func NewRedisState(rc *pkgredis.Client) *RedisState { return &RedisState{rc: rc, ttl: lockTTL} }

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

func (s *RedisState) Acquire(ctx context.Context, configID string) (func(), bool, error) {
	key := lockKeyPrefix + configID
	token := uuid.NewString()
	ok, err := s.rc.SetNX(ctx, key, token, s.ttl)
	if err != nil || !ok {
		return nil, false, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, s.ttl/3, func() (bool, error) {
			n, err := renewScript.Run(context.Background(), s.rc.Raw(), []string{key}, token, s.ttl.Milliseconds()).Int()
			return n == 1, err
		})
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done
			// Released even when the run's context is gone.
			_ = releaseScript.Run(context.Background(), s.rc.Raw(), []string{key}, token).Err()
		})
	}
	return release, true, nil
}

// keepAlive calls renew every interval until stop closes or the lock is
// reported lost. Transient errors are retried on the next tick.
func keepAlive(stop <-chan struct{}, interval time.Duration, renew func() (bool, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := renew()
			if err == nil && !held {
				return
			}
		}
	}
}

func (s *RedisState) SaveResult(ctx context.Context, res Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, resultKeyPrefix+res.ConfigID, data, 0)
}

func (s *RedisState) LastResult(ctx context.Context, configID string) (*Result, error) {
	raw, err := s.rc.Get(ctx, resultKeyPrefix+configID)
	if err != nil || raw == "" {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode sync result: %w", err)
	}
	return &res, nil
}

// MemoryState guards runs within one process.
type MemoryState struct {
	mu      sync.Mutex
	running map[string]bool
	results map[string]Result
}

func NewMemoryState() *MemoryState {
	return &MemoryState{running: make(map[string]bool), results: make(map[string]Result)}
}

func (s *MemoryState) Acquire(ctx context.Context, configID string) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[configID] {
		return nil, false, nil
	}
	s.running[configID] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.running, configID)
			s.mu.Unlock()
		})
	}, true, nil
}

func (s *MemoryState) SaveResult(ctx context.Context, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.ConfigID] = res
	return nil
}

func (s *MemoryState) LastResult(ctx context.Context, configID string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[configID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}
