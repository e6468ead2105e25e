package remap

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const (
	chunkName        = "mapper"
	defaultCacheSize = 32
)

// Hash returns the content hash used to detect unchanged mapping source.
func Hash(src string) uint64 {
	return xxhash.Sum64String(src)
}

// EmptyHash is the hash of empty source, the hash of the identity mapping.
var EmptyHash = Hash("")

// Compiler turns mapping source into Lua bytecode. Compiled prototypes are
// immutable and cached by content hash, so one Compiler can serve every
// engine of a host. Compiler is safe for concurrent use.
type Compiler struct {
	mu       sync.Mutex
	cache    map[uint64]*lua.FunctionProto
	order    []uint64
	capacity int
}

// NewCompiler returns a compiler caching up to capacity prototypes.
// capacity <= 0 selects a small default.
func NewCompiler(capacity int) *Compiler {
	if capacity <= 0 {
		capacity = defaultCacheSize
	}

	return &Compiler{
		cache:    make(map[uint64]*lua.FunctionProto, capacity),
		capacity: capacity,
	}
}

// Compile compiles src into a fresh Script. Failures are *CompileError.
func (c *Compiler) Compile(src string) (*Script, error) {
	proto, err := c.proto(src)
	if err != nil {
		return nil, err
	}

	return newScript(proto, Hash(src)), nil
}

// Cached reports how many prototypes are cached.
func (c *Compiler) Cached() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.cache)
}

func (c *Compiler) proto(src string) (*lua.FunctionProto, error) {
	h := Hash(src)

	c.mu.Lock()
	proto, ok := c.cache[h]
	c.mu.Unlock()

	if ok {
		return proto, nil
	}

	chunk, err := parse.Parse(strings.NewReader(src), chunkName)
	if err != nil {
		return nil, &CompileError{Diagnostic: err.Error(), Err: err}
	}

	proto, err = lua.Compile(chunk, chunkName)
	if err != nil {
		return nil, &CompileError{Diagnostic: err.Error(), Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache[h]; !ok {
		if len(c.order) == c.capacity {
			delete(c.cache, c.order[0])
			c.order = c.order[1:]
		}

		c.cache[h] = proto
		c.order = append(c.order, h)
	}

	return proto, nil
}
