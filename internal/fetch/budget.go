package fetch

import (
	"errors"
	"fmt"
	"sync"
)

var ErrQuotaExhausted = errors.New("request quota exhausted")

// Budget caps the number of requests sent to a host during one run.
// A nil Budget allows everything.
type Budget struct {
	mu     sync.Mutex
	limits map[string]int
	spent  map[string]int
}

// NewBudget creates an empty budget.
func NewBudget() *Budget {
	return &Budget{limits: make(map[string]int), spent: make(map[string]int)}
}

// Limit sets the maximum number of requests to host. Zero removes the limit.
func (b *Budget) Limit(host string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 {
		delete(b.limits, host)
		return
	}
	b.limits[host] = n
}

// Spend records one request to host.
func (b *Budget) Spend(host string) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit, ok := b.limits[host]; ok && b.spent[host] >= limit {
		return fmt.Errorf("%s: %d requests: %w", host, limit, ErrQuotaExhausted)
	}
	b.spent[host]++
	return nil
}

// Spent returns the number of requests recorded for host.
func (b *Budget) Spent(host string) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent[host]
}

// Snapshot returns the number of requests recorded per host.
func (b *Budget) Snapshot() map[string]int {
	out := make(map[string]int)
	if b == nil {
		return out
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for host, n := range b.spent {
		out[host] = n
	}
	return out
}
