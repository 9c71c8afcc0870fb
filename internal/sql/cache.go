package sql

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// DefaultCacheSize bounds the number of compiled conditions kept hot.
const DefaultCacheSize = 128

// Compiler compiles condition strings into row filters, caching parsed
// forms by source text so repeated conditions (and undo paths) never
// re-parse.
type Compiler struct {
	cache *lru.Cache[string, *Condition]
}

// NewCompiler creates a compiler with the given cache capacity;
// non-positive sizes fall back to DefaultCacheSize.
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, *Condition](size)
	return &Compiler{cache: cache}
}

// Compile returns the filter for a condition string. An empty string
// yields a nil filter, which matches every row.
func (c *Compiler) Compile(src string) (types.RowFilter, error) {
	cond, err := c.compile(src)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return nil, nil
	}
	return cond, nil
}

func (c *Compiler) compile(src string) (*Condition, error) {
	if len(src) == 0 {
		return nil, nil
	}
	if cond, ok := c.cache.Get(src); ok {
		return cond, nil
	}
	cond, err := parseCondition(src)
	if err != nil {
		return nil, err
	}
	c.cache.Add(src, cond)
	return cond, nil
}

// Len reports how many compiled conditions are cached.
func (c *Compiler) Len() int { return c.cache.Len() }
