// Package cache memoizes batch calculations.
//
// A calculation depends only on its request and the engine configuration, so
// identical requests can be answered from memory. Entries expire after a TTL
// and are keyed by a SHA-256 fingerprint of every request field.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sync"
	"time"

	"github.com/iwvelando/batch-cost/internal/costing"
	"go.uber.org/zap"
)

// Calculator is anything that prices a batch request. *costing.Engine and
// *Cache both satisfy it.
type Calculator interface {
	Calculate(req *costing.BatchRequest) (costing.BatchCostResult, error)
}

type entry struct {
	result    costing.BatchCostResult
	expiresAt time.Time
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Cache wraps a Calculator and stores successful results. Failed
// calculations are never cached.
type Cache struct {
	inner  Calculator
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	store  map[string]entry
	hits   uint64
	misses uint64
}

// New creates a cache in front of inner. A non-positive ttl disables
// caching so every call reaches inner.
func New(inner Calculator, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		inner:  inner,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		store:  make(map[string]entry),
	}
}

// Calculate returns a cached result for an identical request when one has not
// expired, and otherwise delegates to the wrapped calculator.
func (c *Cache) Calculate(req *costing.BatchRequest) (costing.BatchCostResult, error) {
	if c.ttl <= 0 || req == nil {
		return c.inner.Calculate(req)
	}

	key := Fingerprint(req)

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		c.logger.Debug("calculation served from cache",
			zap.String("op", "cache.Calculate"),
			zap.String("batch", req.Name),
			zap.String("key", key[:12]),
		)
		return e.result, nil
	}

	result, err := c.inner.Calculate(req)

	c.mu.Lock()
	c.misses++
	if err == nil {
		c.store[key] = entry{result: result, expiresAt: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()

	return result, err
}

// Purge removes expired entries and returns how many were dropped.
func (c *Cache) Purge() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.store {
		if !now.Before(e.expiresAt) {
			delete(c.store, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("purged expired calculations",
			zap.String("op", "cache.Purge"),
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.store)),
		)
	}
	return removed
}

// Clear drops every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]entry)
	c.hits, c.misses = 0, 0
}

// Stats returns a snapshot of the hit and miss counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.store)}
}

// Fingerprint hashes every field of req. Two requests with equal fingerprints
// produce identical results from the same engine.
func Fingerprint(req *costing.BatchRequest) string {
	h := sha256.New()
	w := fingerprintWriter{h: h}

	w.text(req.Name)
	w.count(len(req.Items))
	for _, item := range req.Items {
		w.text(item.Name)
		w.float(item.Quantity)
		w.text(item.Unit)
		w.opt(item.ManualCost)
		w.opt(item.PackPrice)
		w.opt(item.PackNetQuantity)
		w.opt(item.UnitPrice)
		w.flag(item.CountsTowardDough)
	}
	w.float(req.BatchMultiplier)

	w.float(req.MediumUsage)
	w.float(req.MediumPrice)
	w.float(req.MediumReplacementCost)
	w.count(req.BatchesPerMediumChange)
	w.float(req.EnergyUsage)
	w.float(req.EnergyRate)

	w.count(len(req.Labor))
	for _, role := range req.Labor {
		w.text(role.Role)
		w.float(role.HourlyRate)
		w.float(role.Hours)
	}
	w.float(req.Overhead)
	w.float(req.PackagingPerUnit)

	w.text(string(req.OutputMode))
	w.float(req.TheoreticalOutput)
	w.float(req.UnitWeight)
	w.float(req.WasteFraction)

	w.float(req.ToppingPackPrice)
	w.float(req.ToppingPackWeight)
	w.float(req.ToppingWeightPerUnit)

	w.float(req.Markup)
	w.float(req.VAT)
	w.text(req.Strategy)
	w.float(req.TargetMargin)
	w.text(req.RoundingRule)
	w.text(req.RoundingMode)
	w.float(req.CharmSuffix)
	w.text(req.Currency)

	w.float(req.TargetProfitPerBatch)
	w.float(req.MonthlyFixedCost)
	w.float(req.PriceVolatility)
	w.float(req.RiskAppetite)
	w.float(req.MarketPressure)

	return hex.EncodeToString(h.Sum(nil))
}

// fingerprintWriter length-prefixes strings and tags optional values so that
// adjacent fields can never run together.
type fingerprintWriter struct {
	h   hash.Hash
	buf [8]byte
}

func (w *fingerprintWriter) count(v int) {
	binary.BigEndian.PutUint64(w.buf[:], uint64(v))
	w.h.Write(w.buf[:])
}

func (w *fingerprintWriter) float(v float64) {
	binary.BigEndian.PutUint64(w.buf[:], math.Float64bits(v))
	w.h.Write(w.buf[:])
}

func (w *fingerprintWriter) text(s string) {
	w.count(len(s))
	w.h.Write([]byte(s))
}

func (w *fingerprintWriter) flag(b bool) {
	if b {
		w.h.Write([]byte{1})
		return
	}
	w.h.Write([]byte{0})
}

func (w *fingerprintWriter) opt(v *float64) {
	w.flag(v != nil)
	if v != nil {
		w.float(*v)
	}
}
