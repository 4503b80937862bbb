package cache_impl

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheI[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Add(key K, value V) (evicted bool)
}

// ProcessedEvents remembers recently committed inbound event ids per
// consumer. A miss says nothing; the ledger remains the source of truth.
type ProcessedEvents struct {
	cache CacheI[string, struct{}]
	log   *slog.Logger
}

func NewProcessedEvents(cache CacheI[string, struct{}], log *slog.Logger) *ProcessedEvents {
	return &ProcessedEvents{
		cache: cache,
		log:   log,
	}
}

// NewExpirableProcessedEvents builds the cache on an LRU bounded by size and ttl.
func NewExpirableProcessedEvents(size int, ttl time.Duration, log *slog.Logger) *ProcessedEvents {
	return NewProcessedEvents(expirable.NewLRU[string, struct{}](size, nil, ttl), log)
}

func (c *ProcessedEvents) Add(consumer, eventID string) {
	const op = "cache_impl.ProcessedEvents.Add"

	if evicted := c.cache.Add(key(consumer, eventID), struct{}{}); evicted {
		c.log.Debug("cache size was exceeded", slog.String("op", op))
	}
}

func (c *ProcessedEvents) Contains(consumer, eventID string) bool {
	_, ok := c.cache.Get(key(consumer, eventID))
	return ok
}

func key(consumer, eventID string) string {
	return consumer + "/" + eventID
}
