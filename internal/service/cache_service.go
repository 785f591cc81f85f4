package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CacheService provides in-memory caching with TTL and invalidation support.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	// generation растёт при каждой инвалидации, чтобы GetOrSet не записал устаревший результат.
	generation uint64

	stop     chan struct{}
	stopOnce sync.Once
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

const cleanupInterval = 5 * time.Minute

// NewCacheService creates a new cache service. Close stops the cleanup goroutine.
func NewCacheService() *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		stop:  make(chan struct{}),
	}

	go cs.cleanup()

	return cs
}

// Get retrieves a value from cache.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set stores a value in cache with TTL.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes a key from cache.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
	cs.generation++
}

// InvalidateByPrefix removes all keys with the given prefix.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
	cs.generation++
}

// InvalidateReportCache сбрасывает всё, что агрегирует отчёты.
func (cs *CacheService) InvalidateReportCache() {
	cs.InvalidateByPrefix(dashboardPrefix)
}

// GetOrSet retrieves a value from cache or computes it if not found.
// Если во время вычисления кэш был инвалидирован, результат возвращается, но не сохраняется.
func (cs *CacheService) GetOrSet(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	cs.mu.RLock()
	startGeneration := cs.generation
	cs.mu.RUnlock()

	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	if cs.generation == startGeneration {
		cs.cache[key] = &cacheEntry{data: value, expiresAt: time.Now().Add(ttl)}
	}
	cs.mu.Unlock()

	return value, nil
}

// Close останавливает фоновую очистку.
func (cs *CacheService) Close() {
	cs.stopOnce.Do(func() { close(cs.stop) })
}

// cleanup removes expired entries periodically.
func (cs *CacheService) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.stop:
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := time.Now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

const dashboardPrefix = "dashboard:"

// Cache key generators
func DashboardStatsCacheKey(scanLimit int) string {
	return dashboardPrefix + "stats:" + strconv.Itoa(scanLimit)
}
