// Package catalog keeps the wrapped scoring functions a process serves,
// keyed by model name.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aigoflow/scoring-service/internal/wrapper"
)

var ErrModelNotFound = errors.New("model not found")

type Catalog struct {
	mu      sync.RWMutex
	scorers map[string]wrapper.Scorer
}

func New() *Catalog {
	return &Catalog{scorers: make(map[string]wrapper.Scorer)}
}

// Register adds or replaces the scorer served under name.
func (c *Catalog) Register(name string, s wrapper.Scorer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scorers[name] = s
}

func (c *Catalog) Get(name string) (wrapper.Scorer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scorers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return s, nil
}

// Names returns the registered model names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.scorers))
	for n := range c.scorers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
