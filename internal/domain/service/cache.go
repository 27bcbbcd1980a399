package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// Fingerprint returns the SHA-256 hex digest of the full extracted text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is an unbounded in-process ReportCache. Entries live for the
// process lifetime.
type MemoryCache struct {
	mu      sync.RWMutex
	reports map[string]*model.Report
}

var _ outbound.ReportCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{reports: make(map[string]*model.Report)}
}

// Get returns a copy of the stored report.
func (c *MemoryCache) Get(_ context.Context, fingerprint string) (*model.Report, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[fingerprint]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

// Put stores a copy of report, replacing any previous entry.
func (c *MemoryCache) Put(_ context.Context, fingerprint string, report *model.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[fingerprint] = report.Clone()
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.reports)
}
