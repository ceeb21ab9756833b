package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Errors
// =============================================================================

// ErrLockTimeout is returned when the commit lock for a draft could not be
// acquired before the context ended.
var ErrLockTimeout = errors.New("timed out waiting for draft commit lock")

// releaseLockScript deletes the lock key only if it still holds our token,
// so an expired lock that someone else re-acquired is never released by us.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// =============================================================================
// Constants
// =============================================================================

const (
	RedisDraftLockKeyPrefix = "draft:commit-lock:"

	defaultLockTTL = 30 * time.Second

	// Polling interval while another process holds the Redis lock
	lockRetryInterval = 50 * time.Millisecond

	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// =============================================================================
// Types
// =============================================================================

// DraftLocker serialises commits of the same draft.
type DraftLocker interface {
	// Lock blocks until the draft's commit lock is held and returns the
	// function that releases it.
	Lock(ctx context.Context, draftID uuid.UUID) (func(), error)
}

// DraftLockService is a two-level lock: a per-draft mutex serialises
// goroutines in this process, then a Redis SET NX PX lock serialises
// processes. Redis is optional; without it only the in-process level applies
// and the row lock taken inside the commit transaction remains the final
// guard.
//
// Lock Ordering (to prevent deadlocks):
// 1. Acquire draft mutex FIRST
// 2. Then the Redis lock
// 3. Then the database row lock inside the commit transaction
type DraftLockService struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration

	// Per-draft mutex for in-process serialisation
	draftMu sync.Map // map[uuid.UUID]*mutexWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// =============================================================================
// Constructor
// =============================================================================

// NewDraftLockService creates a new DraftLockService. redisClient may be nil.
// Starts background goroutine for mutex cleanup. Call Stop() during graceful shutdown.
func NewDraftLockService(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) *DraftLockService {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	svc := &DraftLockService{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
		stopChan:    make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.cleanupMutexMapLoop()

	return svc
}

// =============================================================================
// Lifecycle Methods
// =============================================================================

// Stop gracefully shuts down the service.
// Safe to call multiple times.
func (s *DraftLockService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("DraftLockService stopped")
	}
}

// =============================================================================
// Public Methods
// =============================================================================

func (s *DraftLockService) Lock(ctx context.Context, draftID uuid.UUID) (func(), error) {
	mt := s.getDraftMutex(draftID)
	if err := lockWithContext(ctx, &mt.mu); err != nil {
		return nil, err
	}

	if s.redisClient == nil {
		return mt.mu.Unlock, nil
	}

	key := RedisDraftLockKeyPrefix + draftID.String()
	token := uuid.NewString()
	if err := s.acquireRedisLock(ctx, key, token); err != nil {
		mt.mu.Unlock()
		return nil, err
	}

	return func() {
		// Release with a fresh context: the caller's may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, s.redisClient, []string{key}, token).Err(); err != nil {
			s.log.Warnf("Failed to release draft lock %s (expires in %v): %+v", draftID, s.ttl, err)
		}
		mt.mu.Unlock()
	}, nil
}

// =============================================================================
// Private Helper Methods
// =============================================================================

func (s *DraftLockService) acquireRedisLock(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := s.redisClient.SetNX(ctx, key, token, s.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ErrLockTimeout
			}
			return fmt.Errorf("acquire redis lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// lockWithContext takes mu, giving up when ctx ends.
func lockWithContext(ctx context.Context, mu *sync.Mutex) error {
	if mu.TryLock() {
		return nil
	}
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-ticker.C:
			if mu.TryLock() {
				return nil
			}
		}
	}
}

// getDraftMutex returns mutex for a specific draft ID
func (s *DraftLockService) getDraftMutex(draftID uuid.UUID) *mutexWithTimestamp {
	mt, _ := s.draftMu.LoadOrStore(draftID, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

// cleanupMutexMapLoop runs in background to clean stale mutexes
func (s *DraftLockService) cleanupMutexMapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			s.log.Debug("Mutex cleanup goroutine stopping")
			return
		case <-ticker.C:
			s.cleanupStaleMutexes(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanupStaleMutexes removes mutexes unused since cutoff. TryLock skips
// mutexes in use; lastUsed is re-checked under the lock.
func (s *DraftLockService) cleanupStaleMutexes(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	s.draftMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				s.draftMu.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		s.log.Debugf("Cleaned up %d stale mutexes", cleaned)
	}
	return cleaned
}
