package diagnostics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"routedash/internal/metrics"
	"routedash/internal/stats"
)

const defaultCacheEntries = 8

// ModelCache memoizes fitted models by fingerprint. A fingerprint covers every
// input the fit sees, so a changed row or policy is a different key.
type ModelCache struct {
	mu      sync.Mutex
	entries map[string]*stats.RegressionModel
	order   []string
	limit   int

	group   singleflight.Group
	metrics *metrics.Registry
}

// NewModelCache creates a cache holding at most limit fits.
func NewModelCache(limit int, m *metrics.Registry) *ModelCache {
	if limit <= 0 {
		limit = defaultCacheEntries
	}
	return &ModelCache{entries: make(map[string]*stats.RegressionModel), limit: limit, metrics: m}
}

// Fingerprint hashes the fit rows as the model sees them plus the weighting policy.
func Fingerprint(days []stats.Day, policy stats.HolidayWeighting) string {
	h := sha256.New()
	weight := policy.Func()
	fmt.Fprintf(h, "policy=%s\n", policy.Fingerprint())
	for _, d := range days {
		y, ok := d.RouteMinutes()
		if !ok {
			continue
		}
		w := 1.0
		if weight != nil {
			w = weight(d)
		}
		fmt.Fprintf(h, "%s|%d|%d|%g|%g\n", d.Date, d.Parcels, d.Letters, y, w)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fit returns the memoized model for the inputs, fitting at most once per key
// even under concurrent callers. A nil model is cached like any other result.
func (c *ModelCache) Fit(days []stats.Day, policy stats.HolidayWeighting) (*stats.RegressionModel, string) {
	key := Fingerprint(days, policy)

	c.mu.Lock()
	if m, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.metrics.CacheHit("model")
		return m, key
	}
	c.mu.Unlock()
	c.metrics.CacheMiss("model")

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		m := stats.FitRegression(days, policy.Func())
		c.store(key, m)
		return m, nil
	})
	return v.(*stats.RegressionModel), key
}

func (c *ModelCache) store(key string, m *stats.RegressionModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = m
	for len(c.order) > c.limit {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

// Invalidate drops every memoized model.
func (c *ModelCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*stats.RegressionModel)
	c.order = nil
}

// Len returns the number of memoized fits.
func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
